package types

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strings"

	"github.com/zeu5/emphatic-td/td"
	"github.com/zeu5/emphatic-td/util"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ThetaPath is the path of one parameter component over the run.
type ThetaPath struct {
	Component int
	Mean      []float64 // average over the particles
	Std       []float64
	Expected  []float64 // deterministic recursion
	// FixedPoint is the component of A⁻¹b, Singular is set when there is none.
	FixedPoint float64
	Singular   bool
	// Diverged is set when the mean leaves the plotted range.
	Diverged bool
}

// ThetaAnalyzer extracts the path of component k of theta.
func ThetaAnalyzer(k int) Analyzer {
	return func(r *Result) (DataSet, error) {
		_, p := r.OptimalRun.Dims()
		if k < 0 || k >= p {
			return nil, fmt.Errorf("component %d out of %d", k, p)
		}
		out := &ThetaPath{
			Component: k,
			Mean:      mat.Col(nil, k, r.Trajectory.Mean()),
			Std:       mat.Col(nil, k, r.Trajectory.Std()),
			Expected:  mat.Col(nil, k, r.OptimalRun),
			Singular:  r.Optimal == nil,
		}
		out.Diverged = diverged(out.Mean)
		if r.Optimal != nil {
			out.FixedPoint = r.Optimal.AtVec(k)
		}
		return out, nil
	}
}

// ParticlePaths are the paths of one parameter component for every particle.
type ParticlePaths struct {
	Component int
	Paths     *mat.Dense // (T+1)×N
	Expected  []float64
}

func ParticlesAnalyzer(k int) Analyzer {
	return func(r *Result) (DataSet, error) {
		_, p := r.OptimalRun.Dims()
		if k < 0 || k >= p {
			return nil, fmt.Errorf("component %d out of %d", k, p)
		}
		return &ParticlePaths{
			Component: k,
			Paths:     r.Trajectory.Component(k),
			Expected:  mat.Col(nil, k, r.OptimalRun),
		}, nil
	}
}

// MSVECurve is the mean squared value error over the run.
type MSVECurve struct {
	Mean     []float64 // average over the particles
	Expected []float64 // of the deterministic recursion
	Min      float64   // best achievable with the features
}

// MSVEAnalyzer needs the true values in the model.
func MSVEAnalyzer() Analyzer {
	return func(r *Result) (DataSet, error) {
		particles, err := r.Model.ParallelMSVE(r.Trajectory.Theta)
		if err != nil {
			return nil, err
		}
		expected, err := r.Model.MSVEPath(r.OptimalRun)
		if err != nil {
			return nil, err
		}
		_, best, err := r.Model.MSVEMin()
		if err != nil {
			return nil, err
		}
		T, N := particles.Dims()
		mean := make([]float64, T)
		for t := range mean {
			mean[t] = mat.Sum(particles.RowView(t)) / float64(N)
		}
		return &MSVECurve{Mean: mean, Expected: expected, Min: best}, nil
	}
}

// FixedPoint summarises the key matrices of an engine on a model.
type FixedPoint struct {
	Engine   string
	A        [][]float64
	B        []float64
	Theta    []float64
	Singular bool
	// Residual is |b - Aθ| at the mean of the final parameters.
	Residual float64
	Final    []float64
	// Diverged is set when the final mean is not finite or beyond divergenceBound.
	Diverged bool
}

// MarshalJSON writes the numbers json cannot hold, NaN and ±Inf, as null.
func (fp *FixedPoint) MarshalJSON() ([]byte, error) {
	A := make([][]*float64, len(fp.A))
	for i, row := range fp.A {
		A[i] = jsonNumbers(row)
	}
	return json.Marshal(struct {
		Engine   string       `json:"engine"`
		A        [][]*float64 `json:"A"`
		B        []*float64   `json:"b"`
		Theta    []*float64   `json:"theta,omitempty"`
		Singular bool         `json:"singular"`
		Diverged bool         `json:"diverged"`
		Residual *float64     `json:"residual"`
		Final    []*float64   `json:"final"`
	}{
		Engine:   fp.Engine,
		A:        A,
		B:        jsonNumbers(fp.B),
		Theta:    jsonNumbers(fp.Theta),
		Singular: fp.Singular,
		Diverged: fp.Diverged,
		Residual: jsonNumber(fp.Residual),
		Final:    jsonNumbers(fp.Final),
	})
}

func jsonNumber(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func jsonNumbers(values []float64) []*float64 {
	if values == nil {
		return nil
	}
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = jsonNumber(v)
	}
	return out
}

func FixedPointAnalyzer() Analyzer {
	return func(r *Result) (DataSet, error) {
		rows, _ := r.A.Dims()
		A := make([][]float64, rows)
		for i := range A {
			A[i] = mat.Row(nil, i, r.A)
		}
		mean := r.Trajectory.Mean()
		final := mat.Row(nil, r.Trajectory.Steps(), mean)
		out := &FixedPoint{
			Engine:   r.Engine,
			A:        A,
			B:        mat.Col(nil, 0, r.B),
			Singular: r.Optimal == nil,
			Residual: td.Residual(r.A, r.B, final),
			Final:    final,
			Diverged: diverged(final),
		}
		if r.Optimal != nil {
			out.Theta = mat.Col(nil, 0, r.Optimal)
		}
		return out, nil
	}
}

// divergenceBound is the largest magnitude drawn. A path is cut at its first
// point that is NaN or beyond it.
const divergenceBound = 1e12

func finitePrefix(values []float64) []float64 {
	for i, v := range values {
		if math.IsNaN(v) || math.Abs(v) > divergenceBound {
			return values[:i]
		}
	}
	return values
}

func diverged(values []float64) bool {
	return len(finitePrefix(values)) < len(values)
}

// line is the plottable prefix of values.
func line(values []float64) plotter.XYs {
	values = finitePrefix(values)
	points := make(plotter.XYs, len(values))
	for i, v := range values {
		points[i] = plotter.XY{X: float64(i), Y: v}
	}
	return points
}

func legend(name string, cut bool) string {
	if cut {
		return name + " (diverged)"
	}
	return name
}

func savePlot(p *plot.Plot, dir, name string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(dir, name))
}

// ThetaPlotter plots the mean path of each experiment next to its
// deterministic recursion, dashed.
func ThetaPlotter(plotPath string) Comparator {
	return func(names []string, ds []DataSet) error {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Step"
		component := 0
		for i := 0; i < len(names); i++ {
			tp := ds[i].(*ThetaPath)
			component = tp.Component

			mean, err := plotter.NewLine(line(tp.Mean))
			if err != nil {
				return err
			}
			mean.Color = plotutil.Color(i)
			p.Add(mean)
			p.Legend.Add(legend(names[i], tp.Diverged), mean)

			expected, err := plotter.NewLine(line(tp.Expected))
			if err != nil {
				return err
			}
			expected.Color = plotutil.Color(i)
			expected.Dashes = plotutil.Dashes(1)
			p.Add(expected)
			p.Legend.Add(legend(names[i]+" expected", diverged(tp.Expected)), expected)
		}
		p.Y.Label.Text = fmt.Sprintf("theta[%d]", component)
		return savePlot(p, plotPath, fmt.Sprintf("theta_%d.png", component))
	}
}

// ParticlesPlotter draws one plot per experiment: every particle as a thin
// line and the deterministic recursion on top.
func ParticlesPlotter(plotPath string) Comparator {
	return func(names []string, ds []DataSet) error {
		for i, name := range names {
			pp := ds[i].(*ParticlePaths)
			_, N := pp.Paths.Dims()
			p := plot.New()
			p.Title.Text = fmt.Sprintf("%s with %d particles", name, N)
			p.X.Label.Text = "Step"
			p.Y.Label.Text = fmt.Sprintf("theta[%d]", pp.Component)

			for j := 0; j < N; j++ {
				l, err := plotter.NewLine(line(mat.Col(nil, j, pp.Paths)))
				if err != nil {
					return err
				}
				l.Color = plotutil.Color(0)
				l.Width = vg.Points(0.2)
				p.Add(l)
			}
			expected, err := plotter.NewLine(line(pp.Expected))
			if err != nil {
				return err
			}
			expected.Width = vg.Points(2)
			p.Add(expected)
			p.Legend.Add(legend("expected", diverged(pp.Expected)), expected)

			if err := savePlot(p, plotPath, fmt.Sprintf("%s_particles_%d.png", name, pp.Component)); err != nil {
				return err
			}
		}
		return nil
	}
}

// MSVEPlotter plots the mean MSVE of each experiment and the best achievable.
func MSVEPlotter(plotPath string) Comparator {
	return func(names []string, ds []DataSet) error {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Step"
		p.Y.Label.Text = "MSVE"
		for i := 0; i < len(names); i++ {
			curve := ds[i].(*MSVECurve)
			mean, err := plotter.NewLine(line(curve.Mean))
			if err != nil {
				return err
			}
			mean.Color = plotutil.Color(i)
			p.Add(mean)
			p.Legend.Add(legend(names[i], diverged(curve.Mean)), mean)

			best := make([]float64, len(curve.Mean))
			for t := range best {
				best[t] = curve.Min
			}
			floor, err := plotter.NewLine(line(best))
			if err != nil {
				return err
			}
			floor.Color = plotutil.Color(i)
			floor.Dashes = plotutil.Dashes(2)
			p.Add(floor)
		}
		return savePlot(p, plotPath, "msve.png")
	}
}

// ThetaRecorder writes the path of every experiment as csv under recordPath.
func ThetaRecorder(recordPath string) Comparator {
	return func(names []string, ds []DataSet) error {
		if err := os.MkdirAll(recordPath, os.ModePerm); err != nil {
			return err
		}
		for i, name := range names {
			tp := ds[i].(*ThetaPath)
			rows := len(tp.Mean)
			m := mat.NewDense(rows, 4, nil)
			for t := 0; t < rows; t++ {
				m.SetRow(t, []float64{float64(t), tp.Mean[t], tp.Std[t], tp.Expected[t]})
			}
			file := path.Join(recordPath, fmt.Sprintf("%s_theta_%d.csv", name, tp.Component))
			if err := util.WriteMatrix(file, []string{"step", "mean", "std", "expected"}, m); err != nil {
				return err
			}
		}
		return nil
	}
}

// RecordComparator appends one json line per experiment to recordPath.
func RecordComparator(recordPath string) Comparator {
	return func(names []string, ds []DataSet) error {
		if err := os.MkdirAll(path.Dir(recordPath), os.ModePerm); err != nil {
			return err
		}
		for i, name := range names {
			bs, err := json.Marshal(map[string]interface{}{
				"experiment": name,
				"data":       ds[i],
			})
			if err != nil {
				return err
			}
			if err := util.AppendToFile(recordPath, string(bs)); err != nil {
				return err
			}
		}
		return nil
	}
}

// PrintComparator writes the fixed points of every experiment to out.
func PrintComparator(out io.Writer) Comparator {
	return func(names []string, ds []DataSet) error {
		for i, name := range names {
			fp := ds[i].(*FixedPoint)
			theta := "singular"
			if !fp.Singular {
				theta = formatVector(fp.Theta)
			}
			status := ""
			if fp.Diverged {
				status = ", diverged"
			}
			fmt.Fprintf(out, "%s (%s): optimal %s, final %s, residual %.6g%s\n",
				name, fp.Engine, theta, formatVector(fp.Final), fp.Residual, status)
		}
		return nil
	}
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.6g", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
