package model

import "fmt"

// SchedulingInvariantViolation is raised when a round is sealed while one of
// its variants has no recorded outcome.
type SchedulingInvariantViolation struct {
	Target  TargetID
	Round   int
	Variant string
}

func (e *SchedulingInvariantViolation) Error() string {
	return fmt.Sprintf("scheduling invariant violated: variant %s of %s round %d has no recorded outcome", e.Variant, e.Target, e.Round)
}

// IncompatibleSpliceError reports parents that cannot be crossed over.
type IncompatibleSpliceError struct {
	LenA, LenB int
	Prefix     int
	Suffix     int
	Reason     string
}

func (e *IncompatibleSpliceError) Error() string {
	return fmt.Sprintf("cannot splice parents of %d and %d steps (prefix %d, suffix %d): %s",
		e.LenA, e.LenB, e.Prefix, e.Suffix, e.Reason)
}
