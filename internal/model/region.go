package model

import "fmt"

// Region is a half-open index range [Start, End) over a step sequence.
type Region struct {
	Start int
	End   int
}

// Len is the number of steps covered.
func (r Region) Len() int {
	return r.End - r.Start
}

// InvalidRegionError reports a region that is out of bounds, inverted or
// overlapping its predecessor.
type InvalidRegionError struct {
	Region Region
	Length int
	Reason string
}

func (e *InvalidRegionError) Error() string {
	return fmt.Sprintf("invalid region [%d, %d) over %d steps: %s", e.Region.Start, e.Region.End, e.Length, e.Reason)
}

// ValidateRegions checks that regions lie within [0, n], are not inverted and
// appear in increasing, non-overlapping order.
func ValidateRegions(regions []Region, n int) error {
	prevEnd := 0

	for i, r := range regions {
		switch {
		case r.Start < 0 || r.End > n:
			return &InvalidRegionError{Region: r, Length: n, Reason: "out of bounds"}
		case r.End < r.Start:
			return &InvalidRegionError{Region: r, Length: n, Reason: "end before start"}
		case i > 0 && r.Start < prevEnd:
			return &InvalidRegionError{Region: r, Length: n, Reason: "overlaps previous region"}
		}

		prevEnd = r.End
	}

	return nil
}
