package ensemble

import (
	"math"

	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// CorrelationMatrix returns the Pearson correlation between the columns of
// t. Constant columns correlate as 0 with everything but themselves.
func CorrelationMatrix(t *table.Table) *mat.SymDense {
	n := t.Cols()
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, t.Data, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if math.IsNaN(corr.At(i, j)) {
				v := 0.0
				if i == j {
					v = 1
				}
				corr.SetSym(i, j, v)
			}
		}
	}
	return &corr
}

type corrGrid struct {
	m *mat.SymDense
}

func (g corrGrid) Dims() (c, r int)   { n := g.m.SymmetricDim(); return n, n }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// PlotCorrelation writes a heat map of the correlation between prediction
// columns (typically Result.Predictions[0]) to filename. The image format
// follows the file extension.
func PlotCorrelation(t *table.Table, filename string) error {
	if t == nil || t.Cols() < 2 {
		return errors.NewValueError("PlotCorrelation", "need at least two prediction columns")
	}
	corr := CorrelationMatrix(t)

	p := plot.New()
	p.Title.Text = "Out-of-fold prediction correlation"

	hm := plotter.NewHeatMap(corrGrid{m: corr}, palette.Heat(32, 1))
	hm.Min, hm.Max = -1, 1
	p.Add(hm)
	p.NominalX(t.Columns...)
	p.NominalY(t.Columns...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1

	size := vg.Length(120+60*t.Cols()) * vg.Millimeter / 2
	if err := p.Save(size, size, filename); err != nil {
		return errors.Wrapf(err, "save correlation plot %s", filename)
	}
	return nil
}
