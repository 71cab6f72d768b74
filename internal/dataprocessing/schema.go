package dataprocessing

import (
	"fmt"

	apperrors "loanprep/internal/errors"
)

// Schema is the column list and per-column kind taken from the first chunk.
// Columns with no value in the first chunk stay KindEmpty until Seed or a
// later chunk resolves them.
type Schema struct {
	Columns []string
	Kinds   []Kind
}

// InferSchema builds the schema of a dataset from its first chunk
func InferSchema(header []string, rows [][]string) *Schema {
	return &Schema{
		Columns: append([]string(nil), header...),
		Kinds:   InferKinds(len(header), rows),
	}
}

// KindOf returns the kind of the named column
func (s *Schema) KindOf(column string) (Kind, bool) {
	for i, name := range s.Columns {
		if name == column {
			return s.Kinds[i], true
		}
	}
	return KindEmpty, false
}

// Seed sets the kind of columns still KindEmpty from kinds, which must be
// aligned with s.Columns. Columns resolved by the first chunk keep their kind.
func (s *Schema) Seed(kinds []Kind) {
	for i := range s.Kinds {
		if s.Kinds[i] == KindEmpty && i < len(kinds) {
			s.Kinds[i] = kinds[i]
		}
	}
}

// DriftKind classifies a schema drift event
type DriftKind string

const (
	// DriftKindChanged means a chunk's inferred kind disagrees with the schema
	DriftKindChanged DriftKind = "kind_changed"
	// DriftDroppedHasValues means a column dropped as empty has values in a later chunk
	DriftDroppedHasValues DriftKind = "dropped_column_has_values"
)

// DriftEvent records the first chunk in which a column drifted, and how many
// chunks drifted the same way.
type DriftEvent struct {
	Column      string    `json:"column"`
	Kind        DriftKind `json:"kind"`
	Expected    Kind      `json:"expected"`
	Observed    Kind      `json:"observed"`
	Chunk       int       `json:"chunk"`
	Line        int       `json:"line"`
	Occurrences int       `json:"occurrences"`
}

// Err converts the event to a SchemaDrift error
func (e DriftEvent) Err() error {
	var msg string
	switch e.Kind {
	case DriftDroppedHasValues:
		msg = fmt.Sprintf("column %q was dropped as empty but has values in chunk %d (line %d)", e.Column, e.Chunk, e.Line)
	default:
		msg = fmt.Sprintf("column %q is %s but chunk %d (line %d) infers %s", e.Column, e.Expected, e.Chunk, e.Line, e.Observed)
	}
	return apperrors.NewSchemaDriftError(msg).
		WithContext("column", e.Column).
		WithContext("drift", string(e.Kind)).
		WithContext("chunk", e.Chunk)
}

type driftKey struct {
	column int
	kind   DriftKind
}

// DriftDetector compares each chunk after the first against the schema.
type DriftDetector struct {
	schema  *Schema
	dropped []int
	events  []DriftEvent
	seen    map[driftKey]int
}

// NewDriftDetector watches schema, and the dropped columns of plan when plan
// is not nil.
func NewDriftDetector(schema *Schema, plan *Plan) *DriftDetector {
	d := &DriftDetector{schema: schema, seen: make(map[driftKey]int)}
	if plan != nil {
		d.dropped = append(d.dropped, plan.dropped...)
	}
	return d
}

// Observe checks one chunk aligned with the schema columns. Columns still
// KindEmpty take the chunk's kind. It returns the events seen for the first
// time; repeats only increase Occurrences.
func (d *DriftDetector) Observe(chunk, firstLine int, rows [][]string) []DriftEvent {
	kinds := InferKinds(len(d.schema.Columns), rows)
	var fresh []DriftEvent

	record := func(col int, kind DriftKind, observed Kind) {
		key := driftKey{column: col, kind: kind}
		if idx, ok := d.seen[key]; ok {
			d.events[idx].Occurrences++
			return
		}
		ev := DriftEvent{
			Column:      d.schema.Columns[col],
			Kind:        kind,
			Expected:    d.schema.Kinds[col],
			Observed:    observed,
			Chunk:       chunk,
			Line:        firstLine,
			Occurrences: 1,
		}
		d.seen[key] = len(d.events)
		d.events = append(d.events, ev)
		fresh = append(fresh, ev)
	}

	isDropped := make(map[int]bool, len(d.dropped))
	for _, col := range d.dropped {
		isDropped[col] = true
		if kinds[col] != KindEmpty {
			record(col, DriftDroppedHasValues, kinds[col])
		}
	}

	for col, observed := range kinds {
		if isDropped[col] || observed == KindEmpty {
			continue
		}
		expected := d.schema.Kinds[col]
		switch {
		case expected == KindEmpty:
			d.schema.Kinds[col] = observed
		case expected != observed:
			record(col, DriftKindChanged, observed)
		}
	}
	return fresh
}

// Events returns every distinct drift event seen so far
func (d *DriftDetector) Events() []DriftEvent {
	return append([]DriftEvent(nil), d.events...)
}
