// Package experiment runs regression experiments end to end: a hold-out
// split with optional scaling, cross-validated models from a registry,
// blending, bagging and boosting, stacking, finalization and persistence.
//
// Every piece of state lives on an Experiment value; there is no package
// level session.
//
//	exp, err := experiment.Setup(X, y, experiment.WithTrainSize(0.7))
//	lr, err := exp.CreateModel(ctx, "lr")
//	dt, err := exp.CreateModel(ctx, "dt")
//	stack, err := exp.StackModels(ctx, []*experiment.Model{lr, dt})
//	pred, err := exp.PredictModel(ctx, stack, nil)
package experiment

import (
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/YuminosukeSato/stackgo/sklearn/ensemble"
)

// DefaultTrainSize is the share of rows kept for training by Setup.
const DefaultTrainSize = 0.7

type settings struct {
	trainSize float64
	seed      uint64
	folds     int
	shuffle   bool
	round     int
	nJobs     int
	normalize string
	registry  *Registry
	logger    log.Logger
}

func defaultSettings() *settings {
	return &settings{
		trainSize: DefaultTrainSize,
		seed:      ensemble.DefaultSeed,
		folds:     ensemble.DefaultFolds,
		shuffle:   true,
		round:     ensemble.DefaultRound,
		nJobs:     1,
	}
}

// Option configures Setup.
type Option func(*settings)

// WithTrainSize sets the training share of the hold-out split, in (0, 1].
// 1 keeps every row for training and leaves no hold-out set.
func WithTrainSize(size float64) Option {
	return func(s *settings) {
		s.trainSize = size
	}
}

// WithSeed sets the seed of the hold-out split, the folds and every seeded
// estimator.
func WithSeed(seed uint64) Option {
	return func(s *settings) {
		s.seed = seed
	}
}

// WithFolds sets the fold count used for cross-validation and stacking.
func WithFolds(k int) Option {
	return func(s *settings) {
		s.folds = k
	}
}

// WithShuffle toggles shuffling of the folds.
func WithShuffle(shuffle bool) Option {
	return func(s *settings) {
		s.shuffle = shuffle
	}
}

// WithRound sets the decimals of rendered score grids.
func WithRound(decimals int) Option {
	return func(s *settings) {
		s.round = decimals
	}
}

// WithNJobs sets fold level parallelism. 0 uses every CPU.
func WithNJobs(n int) Option {
	return func(s *settings) {
		s.nJobs = n
	}
}

// WithNormalize scales the features with the given method ("zscore" or
// "minmax"). The scaler is fitted on the training rows only.
func WithNormalize(method string) Option {
	return func(s *settings) {
		s.normalize = method
	}
}

// WithRegistry replaces the default model library.
func WithRegistry(r *Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

// WithLogger sets the experiment logger.
func WithLogger(l log.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// StackOption configures StackModels and CreateStackNet.
type StackOption func(*stackSettings)

type stackSettings struct {
	meta          *Model
	restack       bool
	finalize      bool
	shapeFallback bool
	plot          string
}

// WithMetaModel sets the meta model. The default is linear regression.
func WithMetaModel(m *Model) StackOption {
	return func(s *stackSettings) {
		s.meta = m
	}
}

// WithRestack passes the raw features on to every later level (default false).
func WithRestack(restack bool) StackOption {
	return func(s *stackSettings) {
		s.restack = restack
	}
}

// WithFinalize trains the stack on the full data set, hold-out included.
func WithFinalize(finalize bool) StackOption {
	return func(s *stackSettings) {
		s.finalize = finalize
	}
}

// WithShapeFallback enables the container's restack fallback at inference.
// A freshly trained stack always matches its recorded inputs; the fallback
// only affects containers that were altered after training.
func WithShapeFallback(enabled bool) StackOption {
	return func(s *stackSettings) {
		s.shapeFallback = enabled
	}
}

// WithPlot writes a correlation heatmap of the base level predictions to path.
func WithPlot(path string) StackOption {
	return func(s *stackSettings) {
		s.plot = path
	}
}
