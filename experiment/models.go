package experiment

import (
	"context"
	"encoding/gob"
	"fmt"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/preprocessing"
	"github.com/YuminosukeSato/stackgo/sklearn/ensemble"
)

func init() {
	gob.Register(&preprocessing.StandardScaler{})
	gob.Register(&preprocessing.MinMaxScaler{})
	gob.Register(&Model{})
	gob.Register(&Stack{})
}

// Deployable is anything PredictModel can score: a single model or a stack.
type Deployable interface {
	Name() string
	Predict(ctx context.Context, X *table.Table) ([]float64, error)
}

// Model is a cross-validated estimator. Member holds the unfitted prototype,
// Fitted the estimator trained on the rows the experiment used.
type Model struct {
	ID      string
	Member  ensemble.Member
	Fitted  model.Estimator
	Columns []string
	Scores  *ensemble.ScoreGrid
	// Final is set once the model has been refitted on the full data.
	Final bool
}

// Name returns the estimator name, prefixed with "Final" after FinalizeModel.
func (m *Model) Name() string {
	if m.Final {
		return "Final " + m.Member.Name
	}
	return m.Member.Name
}

// Predict selects the training columns from X and predicts.
func (m *Model) Predict(_ context.Context, X *table.Table) ([]float64, error) {
	if m.Fitted == nil {
		return nil, errors.NewNotFittedError(m.Member.Name, "Predict")
	}
	in, err := X.Select(m.Columns)
	if err != nil {
		return nil, errors.NewShapeMismatchError(errors.StageInference, 0, m.Columns, X.Names())
	}
	pred, err := m.Fitted.Predict(in.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "predict %s", m.Member.Name)
	}
	return table.Vector(pred), nil
}

func (m *Model) String() string {
	return fmt.Sprintf("Model(%s, %s, family=%s)", m.ID, m.Member.Name, m.Member.Family)
}

// Stack is a trained stack together with the prototypes it was built from,
// so that it can be refitted by FinalizeModel.
type Stack struct {
	Levels    [][]*Model
	Meta      *Model
	Restack   bool
	Fallback  bool
	Container *ensemble.StackContainer
	Scores    *ensemble.ScoreGrid
	Final     bool
}

// Name returns "StackingRegressor" or "StackNet".
func (s *Stack) Name() string {
	name := "StackingRegressor"
	if s.Container != nil && s.Container.MultiLayer {
		name = "StackNet"
	}
	if s.Final {
		return "Final " + name
	}
	return name
}

// Predict runs the stack container.
func (s *Stack) Predict(ctx context.Context, X *table.Table) ([]float64, error) {
	if s.Container == nil {
		return nil, errors.NewNotFittedError(s.Name(), "Predict")
	}
	return s.Container.Predict(ctx, X)
}

func (s *Stack) String() string {
	if s.Container == nil {
		return s.Name()
	}
	return s.Container.String()
}

// Pipeline is the persisted form of a deployable: the fitted scaler, if
// any, followed by the model or stack.
type Pipeline struct {
	Columns []string
	Scaler  model.Transformer
	Model   Deployable
}

// Name returns the name of the wrapped deployable.
func (p *Pipeline) Name() string { return p.Model.Name() }

// Predict scales X like the training data and predicts.
func (p *Pipeline) Predict(ctx context.Context, X *table.Table) ([]float64, error) {
	in, err := scaleTable(p.Scaler, p.Columns, X)
	if err != nil {
		return nil, err
	}
	return p.Model.Predict(ctx, in)
}

// scaleTable selects columns from X and applies scaler, keeping the names.
func scaleTable(scaler model.Transformer, columns []string, X *table.Table) (*table.Table, error) {
	if X == nil || X.Rows() == 0 {
		return nil, errors.ErrEmptyData
	}
	in, err := X.Select(columns)
	if err != nil {
		return nil, errors.NewShapeMismatchError(errors.StageInference, 0, columns, X.Names())
	}
	if scaler == nil {
		return in, nil
	}
	scaled, err := scaler.Transform(in.Data)
	if err != nil {
		return nil, errors.Wrap(err, "scale features")
	}
	return table.FromMatrix(scaled, in.Names())
}

// SavePipeline writes p with gob.
func SavePipeline(p *Pipeline, filename string) error {
	return model.SaveModel(p, filename)
}

// LoadPipeline reads a pipeline written by SavePipeline. A stack's container
// is validated before the pipeline is returned.
func LoadPipeline(filename string) (*Pipeline, error) {
	var p Pipeline
	if err := model.LoadModel(&p, filename); err != nil {
		return nil, err
	}
	if p.Model == nil {
		return nil, errors.NewValueError("LoadPipeline", "file holds no model")
	}
	if s, ok := p.Model.(*Stack); ok {
		if s.Container == nil {
			return nil, errors.NewValueError("LoadPipeline", "stack has no container")
		}
		if err := s.Container.Validate(); err != nil {
			return nil, errors.Wrapf(err, "load %s", filename)
		}
	}
	return &p, nil
}
