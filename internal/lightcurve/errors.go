package lightcurve

import "fmt"

// MalformedInputError reports a row that cannot become a flux sample:
// wrong column count, empty or non-numeric cells, non-finite values.
type MalformedInputError struct {
	Row    int
	Column int // 1-based, 0 when the problem is not tied to one cell
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Column > 0 {
		return fmt.Sprintf("malformed input: row %d column %d: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("malformed input: row %d: %s", e.Row, e.Reason)
}

// DegenerateInputError reports a sample whose standard deviation is zero,
// so it cannot be standardized.
type DegenerateInputError struct {
	Row  int
	Mean float64
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: row %d has zero variance (constant flux %g)", e.Row, e.Mean)
}
