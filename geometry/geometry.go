// Package geometry holds the small amount of planar vector math the layout
// and the renderers share.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec is a planar vector.
type Vec = r2.Vec

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec) Vec {
	return r2.Add(a, r2.Scale(0.5, r2.Sub(b, a)))
}

// OrthUnitVector rotates v by a quarter turn and normalises it to unit length.
// A zero (or non-finite) vector has no direction; (0, 1) is returned for it so
// callers never see NaN.
func OrthUnitVector(v Vec) Vec {
	norm := r2.Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return Vec{X: 0, Y: 1}
	}
	return Vec{X: -v.Y / norm, Y: v.X / norm}
}

// ExtentBy returns the items with the smallest and the largest key. Ties keep
// the earliest item. ExtentBy panics on an empty slice.
func ExtentBy[T any](items []T, key func(T) float64) (lo, hi T) {
	lo, hi = items[0], items[0]
	loKey, hiKey := key(lo), key(hi)
	for _, it := range items[1:] {
		k := key(it)
		if k < loKey {
			lo, loKey = it, k
		}
		if k > hiKey {
			hi, hiKey = it, k
		}
	}
	return lo, hi
}

// CurveControl returns the control point of the quadratic curve drawn between
// a and b for an edge with the given group index. Index 0 gives the midpoint,
// so the curve degenerates to a straight segment.
func CurveControl(a, b Vec, groupIndex int, curvature float64) Vec {
	m := Midpoint(a, b)
	o := OrthUnitVector(r2.Sub(b, a))
	return r2.Add(m, r2.Scale(curvature*float64(groupIndex), o))
}

// QuadPoint evaluates the quadratic Bézier p0, c, p1 at t.
func QuadPoint(p0, c, p1 Vec, t float64) Vec {
	u := 1 - t
	return r2.Add(r2.Add(r2.Scale(u*u, p0), r2.Scale(2*u*t, c)), r2.Scale(t*t, p1))
}

// quadSegments is the polyline resolution used by QuadLength.
const quadSegments = 32

// QuadLength approximates the arc length of the quadratic Bézier p0, c, p1.
func QuadLength(p0, c, p1 Vec) float64 {
	var length float64
	prev := p0
	for i := 1; i <= quadSegments; i++ {
		p := QuadPoint(p0, c, p1, float64(i)/quadSegments)
		length += r2.Norm(r2.Sub(p, prev))
		prev = p
	}
	return length
}
