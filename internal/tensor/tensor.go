// Package tensor implements the basis tensor fields that steer street
// directions and the combiner that turns their sum into major/minor
// eigen-directions.
package tensor

import (
	"math"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

// degenerate is the magnitude below which an off-diagonal entry counts as zero.
const degenerate = 1e-5

// Tensor is a 2x2 matrix sample. Row/column 0 is X, row/column 1 is Z.
type Tensor [2][2]float64

// Add returns the elementwise sum.
func (t Tensor) Add(o Tensor) Tensor {
	return Tensor{
		{t[0][0] + o[0][0], t[0][1] + o[0][1]},
		{t[1][0] + o[1][0], t[1][1] + o[1][1]},
	}
}

// Scale multiplies every entry by s.
func (t Tensor) Scale(s float64) Tensor {
	return Tensor{
		{t[0][0] * s, t[0][1] * s},
		{t[1][0] * s, t[1][1] * s},
	}
}

// Det returns the determinant.
func (t Tensor) Det() float64 {
	return t[0][0]*t[1][1] - t[0][1]*t[1][0]
}

// Eigen returns the unit major and minor eigen-directions. The two are
// perpendicular for the symmetric traceless tensors built by the basis fields.
// Neither carries a meaningful sign. A tensor with no off-diagonal component
// yields the canonical X/Z basis.
func (t Tensor) Eigen() (major, minor geom.Point) {
	d := t.Det()
	l1 := math.Sqrt(math.Max(-d, 0))
	l2 := -l1

	if math.Abs(t[1][0]) <= degenerate {
		if math.Abs(t[0][1]) <= degenerate {
			return geom.Pt(1, 0), geom.Pt(0, 1)
		}
		major = geom.Pt(t[0][1], l1-t[0][0]).Normalize()
		minor = geom.Pt(t[0][1], l2-t[0][0]).Normalize()
	} else {
		major = geom.Pt(l1-t[1][1], t[1][0]).Normalize()
		minor = geom.Pt(l2-t[1][1], t[1][0]).Normalize()
	}

	if major.IsZero() || minor.IsZero() {
		return geom.Pt(1, 0), geom.Pt(0, 1)
	}
	return major, minor
}

// oriented builds the unit-magnitude linear tensor for angle theta.
func oriented(r, theta float64) Tensor {
	s, c := math.Sincos(2 * theta)
	return Tensor{
		{r * c, r * s},
		{r * s, -r * c},
	}
}
