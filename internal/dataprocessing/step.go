package dataprocessing

// Step is an extra per-chunk transform run after filling, such as appending
// scaled feature columns. Implementations must not keep state between chunks.
type Step interface {
	Name() string
	// Header returns the output header for an input header. Runs call it
	// once, through Pipeline.Bind.
	Header(in []string) ([]string, error)
	// Apply transforms the rows of one chunk aligned with the input header.
	Apply(in []string, rows [][]string) ([][]string, error)
}

// Pipeline applies steps in order
type Pipeline []Step

// BoundPipeline is a Pipeline with the header of every step resolved.
type BoundPipeline struct {
	steps  Pipeline
	inputs [][]string // inputs[i] is the header step i receives
	Output []string
}

// Bind resolves the header chain of p for the input header in.
func (p Pipeline) Bind(in []string) (*BoundPipeline, error) {
	b := &BoundPipeline{steps: p, inputs: make([][]string, len(p))}
	header := in
	for i, step := range p {
		b.inputs[i] = header
		next, err := step.Header(header)
		if err != nil {
			return nil, err
		}
		header = next
	}
	b.Output = header
	return b, nil
}

// Header folds every step's header
func (p Pipeline) Header(in []string) ([]string, error) {
	b, err := p.Bind(in)
	if err != nil {
		return nil, err
	}
	return b.Output, nil
}

// Apply runs the rows of one chunk through every step
func (b *BoundPipeline) Apply(rows [][]string) ([][]string, error) {
	for i, step := range b.steps {
		out, err := step.Apply(b.inputs[i], rows)
		if err != nil {
			return nil, err
		}
		rows = out
	}
	return rows, nil
}
