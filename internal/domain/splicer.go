package domain

import (
	"github.com/mouse-blink/goevolve/internal/domain/mutagens"
	m "github.com/mouse-blink/goevolve/internal/model"
)

// Splicer crosses two parent sequences into a child.
type Splicer interface {
	Splice(a, b m.Steps) (m.Steps, error)
}

// CutSplicer cuts parent A at a point in [0, len) and parent B at a point in
// [0, len-1) and joins A's head to B's tail. Prefix and Suffix steps of each
// parent form a fixed frame: only the interior is cut, and the child keeps
// A's frame.
type CutSplicer struct {
	Random mutagens.Random
	Prefix int
	Suffix int
}

// Splice returns a deep copy of A.prefix + A[:cutA] + B[cutB:] + A.suffix.
func (c *CutSplicer) Splice(a, b m.Steps) (m.Steps, error) {
	innerA, err := c.interior(a, len(a), len(b))
	if err != nil {
		return nil, err
	}

	innerB, err := c.interior(b, len(a), len(b))
	if err != nil {
		return nil, err
	}

	cutA := 0
	if len(innerA) > 0 {
		cutA = c.Random.Intn(len(innerA))
	}

	cutB := 0
	if len(innerB) > 1 {
		cutB = c.Random.Intn(len(innerB) - 1)
	}

	child := make(m.Steps, 0, len(a)-len(innerA)+cutA+len(innerB)-cutB)
	child = append(child, a[:c.Prefix]...)
	child = append(child, innerA[:cutA]...)
	child = append(child, innerB[cutB:]...)
	child = append(child, a[len(a)-c.Suffix:]...)

	return child.Clone(), nil
}

func (c *CutSplicer) interior(steps m.Steps, lenA, lenB int) (m.Steps, error) {
	if c.Prefix < 0 || c.Suffix < 0 || len(steps) < c.Prefix+c.Suffix {
		return nil, &m.IncompatibleSpliceError{
			LenA: lenA, LenB: lenB, Prefix: c.Prefix, Suffix: c.Suffix,
			Reason: "parent shorter than its fixed frame",
		}
	}

	inner := steps[c.Prefix : len(steps)-c.Suffix]
	if len(inner) == 0 {
		return nil, &m.IncompatibleSpliceError{
			LenA: lenA, LenB: lenB, Prefix: c.Prefix, Suffix: c.Suffix,
			Reason: "parent has no mutable interior",
		}
	}

	return inner, nil
}
