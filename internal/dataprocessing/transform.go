package dataprocessing

import (
	"loanprep/internal/config"
)

// Plan fixes which columns a run keeps. It is built once, before the first
// chunk is written, so every chunk shares one output header.
type Plan struct {
	Input   []string
	Output  []string
	Dropped []string

	keep    []int
	dropped []int
}

// NewPlan keeps every column of header except those named in drop.
func NewPlan(header []string, drop []string) *Plan {
	dropSet := make(map[string]bool, len(drop))
	for _, name := range drop {
		dropSet[name] = true
	}

	p := &Plan{Input: append([]string(nil), header...)}
	for i, name := range header {
		if dropSet[name] {
			p.dropped = append(p.dropped, i)
			p.Dropped = append(p.Dropped, name)
			continue
		}
		p.keep = append(p.keep, i)
		p.Output = append(p.Output, name)
	}
	return p
}

// Tally counts missing cells per input column before filling
type Tally struct {
	Missing []int
	Filled  int
}

// Add accumulates another chunk's tally
func (t *Tally) Add(other Tally) {
	if t.Missing == nil {
		t.Missing = make([]int, len(other.Missing))
	}
	for i, n := range other.Missing {
		t.Missing[i] += n
	}
	t.Filled += other.Filled
}

// FillValue returns the replacement for a missing cell of the given kind.
// Columns with no value yet are filled like numbers.
func FillValue(kind Kind) string {
	if kind == KindText {
		return config.TextFill
	}
	return config.NumericFill
}

// Transform returns rows with the plan's dropped columns removed and missing
// cells replaced by FillValue of the column kind. Other cells are copied
// unchanged, so applying Transform to its own output changes nothing. rows
// and kinds are aligned with plan.Input; rows is not modified.
func Transform(rows [][]string, plan *Plan, kinds []Kind) ([][]string, Tally) {
	tally := Tally{Missing: make([]int, len(plan.Input))}
	out := make([][]string, len(rows))

	for r, row := range rows {
		for _, col := range plan.dropped {
			if IsMissing(row[col]) {
				tally.Missing[col]++
			}
		}

		cleaned := make([]string, len(plan.keep))
		for i, col := range plan.keep {
			cell := row[col]
			if IsMissing(cell) {
				tally.Missing[col]++
				tally.Filled++
				cell = FillValue(kinds[col])
			}
			cleaned[i] = cell
		}
		out[r] = cleaned
	}
	return out, tally
}

// CountMissing tallies missing cells per column without changing rows
func CountMissing(width int, rows [][]string) Tally {
	tally := Tally{Missing: make([]int, width)}
	for _, row := range rows {
		for i := 0; i < width && i < len(row); i++ {
			if IsMissing(row[i]) {
				tally.Missing[i]++
			}
		}
	}
	return tally
}
