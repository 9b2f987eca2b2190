package experiment

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/core/table"
	"github.com/YuminosukeSato/stackgo/metrics"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/YuminosukeSato/stackgo/preprocessing"
	"github.com/YuminosukeSato/stackgo/sklearn/ensemble"
	"github.com/YuminosukeSato/stackgo/sklearn/model_selection"
	"github.com/google/uuid"
)

// Record is one entry of the experiment history.
type Record struct {
	Name string
	At   time.Time
	Item any
}

// Experiment is a modelling session over one data set.
type Experiment struct {
	RunID string

	// Columns are the raw feature names.
	Columns []string
	// X and Y are the full data set; X is scaled when normalization is on.
	X *table.Table
	Y []float64

	XTrain, XTest *table.Table
	YTrain, YTest []float64

	// Scaler is nil unless WithNormalize was given.
	Scaler model.Transformer

	cfg      *settings
	registry *Registry
	folds    []model_selection.Fold
	logger   log.Logger

	mu      sync.Mutex
	history []Record
}

// Setup splits X and y into training and hold-out rows, fits the optional
// scaler on the training rows and draws the folds shared by every later
// call.
func Setup(X *table.Table, y []float64, opts ...Option) (*Experiment, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(cfg)
	}
	if X == nil || X.Rows() == 0 {
		return nil, errors.ErrEmptyData
	}
	if X.Rows() != len(y) {
		return nil, errors.NewDimensionError("experiment.Setup", X.Rows(), len(y), 0)
	}
	if err := errors.CheckNumericalStability("experiment.Setup", y); err != nil {
		return nil, err
	}

	e := &Experiment{
		RunID:    uuid.NewString(),
		Columns:  X.Names(),
		Y:        slices.Clone(y),
		cfg:      cfg,
		registry: cfg.registry,
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	e.logger = cfg.logger
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("experiment")
	}
	e.logger = e.logger.With(log.EstimatorIDKey, e.RunID)

	trainIdx, testIdx, err := model_selection.TrainTestSplit(X.Rows(), cfg.trainSize, cfg.seed)
	if err != nil {
		return nil, err
	}
	train := X.SelectRows(trainIdx)
	full := X
	if cfg.normalize != "" {
		scaler, err := preprocessing.New(cfg.normalize)
		if err != nil {
			return nil, err
		}
		if err := scaler.Fit(train.Data); err != nil {
			return nil, errors.Wrap(err, "fit scaler")
		}
		e.Scaler = scaler
		if full, err = scaleTable(scaler, e.Columns, X); err != nil {
			return nil, err
		}
	}
	e.X = full
	e.XTrain = full.SelectRows(trainIdx)
	e.YTrain = pick(y, trainIdx)
	e.XTest = full.SelectRows(testIdx)
	e.YTest = pick(y, testIdx)

	kf := model_selection.NewKFold(cfg.folds, cfg.shuffle, cfg.seed)
	if e.folds, err = kf.SplitAt(errors.StageFoldSplit, e.XTrain.Rows()); err != nil {
		return nil, err
	}

	e.logger.Info("experiment set up",
		log.SamplesKey, X.Rows(),
		log.FeaturesKey, X.Cols(),
		"train_rows", len(trainIdx),
		"test_rows", len(testIdx),
		log.StackFoldsKey, cfg.folds,
		log.RandomSeedKey, cfg.seed,
	)
	return e, nil
}

// Folds returns the training folds.
func (e *Experiment) Folds() []model_selection.Fold { return e.folds }

// Registry returns the model library.
func (e *Experiment) Registry() *Registry { return e.registry }

// History returns the models created so far, oldest first.
func (e *Experiment) History() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.history)
}

func (e *Experiment) record(name string, item any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, Record{Name: name, At: time.Now().UTC(), Item: item})
}

func (e *Experiment) ensembleOptions(extra ...ensemble.Option) []ensemble.Option {
	opts := []ensemble.Option{
		ensemble.WithFolds(e.cfg.folds),
		ensemble.WithSeed(e.cfg.seed),
		ensemble.WithShuffle(e.cfg.shuffle),
		ensemble.WithNJobs(e.cfg.nJobs),
		ensemble.WithRound(e.cfg.round),
		ensemble.WithLogger(e.logger),
	}
	return append(opts, extra...)
}

// CreateModel cross-validates the registered model id on the training rows
// and fits it on all of them.
func (e *Experiment) CreateModel(ctx context.Context, id string) (*Model, error) {
	entry, err := e.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	est := entry.New(e.cfg.seed)
	m, err := ensemble.NewMemberWithFamily(est, entry.Family)
	if err != nil {
		return nil, err
	}
	return e.train(ctx, id, m)
}

// NewModel cross-validates an estimator that is not in the registry.
func (e *Experiment) NewModel(ctx context.Context, id string, est any) (*Model, error) {
	m, err := ensemble.NewMember(est)
	if err != nil {
		return nil, err
	}
	return e.train(ctx, id, m)
}

func (e *Experiment) train(ctx context.Context, id string, m ensemble.Member) (*Model, error) {
	logger := e.logger.With(log.ModelNameKey, m.Name, log.ModelFamilyKey, m.Family.String())
	grid, err := ensemble.CrossValidate(ctx, m.Estimator, e.XTrain.Data, e.YTrain, e.folds,
		e.ensembleOptions(ensemble.WithLogger(logger))...)
	if err != nil {
		return nil, errors.Wrapf(err, "cross-validate %s", id)
	}
	fitted, err := fitClone(m.Estimator, e.XTrain, e.YTrain)
	if err != nil {
		return nil, errors.Wrapf(err, "fit %s", id)
	}
	out := &Model{ID: id, Member: m, Fitted: fitted, Columns: e.XTrain.Names(), Scores: grid}
	e.record(out.Name(), out)
	logger.Info("model created", log.R2ScoreKey, grid.Mean.R2, log.RMSEKey, grid.Mean.RMSE)
	return out, nil
}

func fitClone(est model.Regressor, X *table.Table, y []float64) (model.Estimator, error) {
	clone := est.Clone()
	err := errors.SafeExecute("fit", func() error {
		return clone.Fit(X.Data, table.ColVector(y))
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

// Comparison is one row of CompareModels.
type Comparison struct {
	Model *Model
	Mean  metrics.Scores
}

// CompareModels creates every registered model except the excluded ids and
// returns them ordered by the sort metric (MAE, MSE, RMSE, R2 or ME). R2 is
// sorted descending, the error metrics ascending.
func (e *Experiment) CompareModels(ctx context.Context, exclude []string, sortBy string) ([]Comparison, error) {
	metric := slices.Index(metrics.ScoreNames, strings.ToUpper(sortBy))
	if sortBy == "" {
		metric = slices.Index(metrics.ScoreNames, "R2")
	}
	if metric < 0 {
		return nil, errors.NewValidationError("sort", "must be one of "+strings.Join(metrics.ScoreNames, ", "), sortBy)
	}

	var out []Comparison
	for _, id := range e.registry.IDs() {
		if slices.Contains(exclude, id) {
			continue
		}
		m, err := e.CreateModel(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Comparison{Model: m, Mean: m.Scores.Mean})
	}
	descending := metrics.ScoreNames[metric] == "R2"
	slices.SortStableFunc(out, func(a, b Comparison) int {
		x, y := a.Mean.Values()[metric], b.Mean.Values()[metric]
		if descending {
			x, y = y, x
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	})
	return out, nil
}

// BlendModels averages the predictions of models with a VotingRegressor.
// With no models every registered model is blended.
func (e *Experiment) BlendModels(ctx context.Context, models []*Model) (*Model, error) {
	if len(models) == 0 {
		for _, id := range e.registry.IDs() {
			entry, _ := e.registry.Lookup(id)
			m, err := ensemble.NewMemberWithFamily(entry.New(e.cfg.seed), entry.Family)
			if err != nil {
				return nil, err
			}
			models = append(models, &Model{ID: id, Member: m})
		}
	}
	ests := make([]any, len(models))
	for i, m := range models {
		ests[i] = m.Member
	}
	vr, err := ensemble.NewVotingRegressor(ests, nil)
	if err != nil {
		return nil, err
	}
	m, err := ensemble.NewMember(vr)
	if err != nil {
		return nil, err
	}
	return e.train(ctx, "blend", m)
}

// Ensemble methods accepted by EnsembleModel.
const (
	Bagging  = "Bagging"
	Boosting = "Boosting"
)

// EnsembleModel wraps the prototype of m in a bagging or AdaBoost.R2
// ensemble of n estimators. Any cloneable regressor can be boosted.
func (e *Experiment) EnsembleModel(ctx context.Context, m *Model, method string, n int) (*Model, error) {
	if n < 1 {
		return nil, errors.NewValidationError("n_estimators", "must be at least 1", n)
	}
	var est model.Regressor
	switch method {
	case Bagging:
		b, err := ensemble.NewBaggingRegressor(m.Member,
			ensemble.WithBaggingEstimators(n),
			ensemble.WithBaggingSeed(e.cfg.seed),
		)
		if err != nil {
			return nil, err
		}
		est = b
	case Boosting:
		a, err := ensemble.NewAdaBoostRegressor(m.Member,
			ensemble.WithAdaBoostEstimators(n),
			ensemble.WithAdaBoostSeed(e.cfg.seed),
		)
		if err != nil {
			return nil, err
		}
		est = a
	default:
		return nil, errors.NewValidationError("method", "must be Bagging or Boosting", method)
	}
	member, err := ensemble.NewMember(est)
	if err != nil {
		return nil, err
	}
	return e.train(ctx, strings.ToLower(method)+"_"+m.ID, member)
}

// StackModels stacks models in a single layer.
func (e *Experiment) StackModels(ctx context.Context, models []*Model, opts ...StackOption) (*Stack, error) {
	return e.stack(ctx, [][]*Model{models}, false, opts)
}

// CreateStackNet stacks levels of models; levels[0] is the base level.
func (e *Experiment) CreateStackNet(ctx context.Context, levels [][]*Model, opts ...StackOption) (*Stack, error) {
	return e.stack(ctx, levels, true, opts)
}

func (e *Experiment) stack(ctx context.Context, levels [][]*Model, multi bool, opts []StackOption) (*Stack, error) {
	s := &stackSettings{}
	for _, opt := range opts {
		opt(s)
	}

	ests := make([][]any, len(levels))
	for i, level := range levels {
		ests[i] = make([]any, len(level))
		for j, m := range level {
			if m == nil {
				return nil, errors.NewUnsupportedEstimatorError(stageOf(i), j, "<nil>", "Fit, Predict, Clone")
			}
			ests[i][j] = m.Member
		}
	}

	X, y := e.XTrain, e.YTrain
	if s.finalize {
		X, y = e.X, e.Y
	}
	extra := []ensemble.Option{
		ensemble.WithRestack(s.restack),
		ensemble.WithShapeFallback(s.shapeFallback),
	}
	if s.meta != nil {
		extra = append(extra, ensemble.WithMetaEstimator(s.meta.Member))
	}

	var (
		res *ensemble.Result
		err error
	)
	if multi {
		res, err = ensemble.CreateStackNet(ctx, ests, X, y, e.ensembleOptions(extra...)...)
	} else {
		res, err = ensemble.StackModels(ctx, ests[0], X, y, e.ensembleOptions(extra...)...)
	}
	if err != nil {
		return nil, err
	}
	if s.plot != "" {
		if err := ensemble.PlotCorrelation(res.Predictions[0], s.plot); err != nil {
			return nil, errors.Wrap(err, "plot base predictions")
		}
	}

	out := &Stack{
		Levels:    levels,
		Meta:      s.meta,
		Restack:   s.restack,
		Fallback:  s.shapeFallback,
		Container: res.Container,
		Scores:    res.Scores,
		Final:     s.finalize,
	}
	e.record(out.Name(), out)
	return out, nil
}

func stageOf(level int) errors.Stage {
	if level == 0 {
		return errors.StageBaseLevel
	}
	return errors.StageIntermediateLevel
}

// Prediction is the outcome of PredictModel.
type Prediction struct {
	Model  string
	Labels []float64
	// Scores is set when the hold-out rows were scored.
	Scores *metrics.Scores
	// Table is the scored data with a trailing "Label" column.
	Table *table.Table
}

// PredictModel scores d on the hold-out rows when data is nil, otherwise
// predicts data (raw, unscaled features) and appends a Label column. A
// loaded Pipeline applies its own scaler to new data.
func (e *Experiment) PredictModel(ctx context.Context, d Deployable, data *table.Table) (*Prediction, error) {
	p, isPipeline := d.(*Pipeline)
	if data == nil {
		if isPipeline {
			d = p.Model
		}
		if e.XTest.Rows() == 0 {
			return nil, errors.NewValueError("PredictModel", "experiment has no hold-out rows")
		}
		labels, err := d.Predict(ctx, e.XTest)
		if err != nil {
			return nil, err
		}
		scores, err := metrics.Evaluate(e.YTest, labels)
		if err != nil {
			return nil, err
		}
		scores = scores.Round(e.cfg.round)
		out, err := AppendLabel(e.XTest, labels)
		if err != nil {
			return nil, err
		}
		e.logger.Info("hold-out scored", log.ModelNameKey, d.Name(), log.R2ScoreKey, scores.R2, log.RMSEKey, scores.RMSE)
		return &Prediction{Model: d.Name(), Labels: labels, Scores: &scores, Table: out}, nil
	}

	in := data
	if !isPipeline {
		var err error
		if in, err = scaleTable(e.Scaler, e.Columns, data); err != nil {
			return nil, err
		}
	}
	labels, err := d.Predict(ctx, in)
	if err != nil {
		return nil, err
	}
	out, err := AppendLabel(data, labels)
	if err != nil {
		return nil, err
	}
	return &Prediction{Model: d.Name(), Labels: labels, Table: out}, nil
}

// FinalizeModel refits d on the full data set, hold-out rows included.
func (e *Experiment) FinalizeModel(ctx context.Context, d Deployable) (Deployable, error) {
	switch v := d.(type) {
	case *Model:
		fitted, err := fitClone(v.Member.Estimator, e.X, e.Y)
		if err != nil {
			return nil, errors.Wrapf(err, "finalize %s", v.ID)
		}
		out := &Model{ID: v.ID, Member: v.Member, Fitted: fitted, Columns: e.X.Names(), Scores: v.Scores, Final: true}
		e.record(out.Name(), out)
		return out, nil
	case *Stack:
		opts := []StackOption{WithRestack(v.Restack), WithShapeFallback(v.Fallback), WithFinalize(true)}
		if v.Meta != nil {
			opts = append(opts, WithMetaModel(v.Meta))
		}
		return e.stack(ctx, v.Levels, v.Container != nil && v.Container.MultiLayer, opts)
	default:
		return nil, errors.NewValidationError("estimator", "cannot finalize", d.Name())
	}
}

// SaveModel writes d, together with the experiment's scaler, to filename.
func (e *Experiment) SaveModel(d Deployable, filename string) error {
	p := &Pipeline{Columns: e.Columns, Scaler: e.Scaler, Model: d}
	if err := SavePipeline(p, filename); err != nil {
		return err
	}
	e.logger.Info("model saved", log.ModelNameKey, d.Name(), "path", filename)
	return nil
}

// LoadModel reads a pipeline written by SaveModel.
func LoadModel(filename string) (*Pipeline, error) {
	return LoadPipeline(filename)
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
