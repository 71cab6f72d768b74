package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
)

// missingTokens are the cell texts read as missing values. The set matches
// the default NA values of the pandas CSV reader.
var missingTokens = map[string]struct{}{
	"":         {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"NULL":     {},
	"null":     {},
	"None":     {},
	"#N/A":     {},
	"#NA":      {},
	"<NA>":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"#N/A N/A": {},
}

// IsMissing reports whether a cell holds no value
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.TrimSpace(cell)]
	return ok
}

// IsNumeric reports whether a non-missing cell parses as a 64-bit float.
func IsNumeric(cell string) bool {
	s := strings.TrimSpace(cell)
	if _, missing := missingTokens[s]; missing {
		return false
	}
	if strings.ContainsRune(s, '_') {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return true
	}
	// out of range still means a number, it just overflows
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return true
	}
	return false
}

// Kind is the inferred type of a column.
type Kind int

const (
	// KindEmpty means no value has been seen yet
	KindEmpty Kind = iota
	KindNumeric
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name in JSON reports
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name written by MarshalText
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty":
		*k = KindEmpty
	case "numeric":
		*k = KindNumeric
	case "text":
		*k = KindText
	default:
		return fmt.Errorf("unknown kind %q", text)
	}
	return nil
}

// Merge combines the kinds of two sets of values of the same column.
func (k Kind) Merge(other Kind) Kind {
	if k == KindEmpty {
		return other
	}
	if other == KindEmpty || k == other {
		return k
	}
	return KindText
}

// KindOf classifies a single cell
func KindOf(cell string) Kind {
	if IsMissing(cell) {
		return KindEmpty
	}
	if IsNumeric(cell) {
		return KindNumeric
	}
	return KindText
}

// InferKinds infers the kind of each of width columns over rows. A column
// with at least one non-numeric value is text.
func InferKinds(width int, rows [][]string) []Kind {
	kinds := make([]Kind, width)
	for _, row := range rows {
		for i := 0; i < width && i < len(row); i++ {
			if kinds[i] == KindText {
				continue
			}
			kinds[i] = kinds[i].Merge(KindOf(row[i]))
		}
	}
	return kinds
}
