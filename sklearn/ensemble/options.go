// Package ensemble implements stacked generalization: single layer stacking
// (StackModels), multi layer stack nets (CreateStackNet) and the inference
// reconstructor that replays their feature construction on new rows.
// It also provides the voting, bagging and boosting regressors used as
// ensemble members.
package ensemble

import (
	"github.com/YuminosukeSato/stackgo/pkg/log"
)

// Defaults of a stacking call.
const (
	DefaultFolds = 10
	DefaultRound = 4
	DefaultSeed  = 786
)

type config struct {
	folds         int
	restack       bool
	meta          any
	seed          uint64
	shuffle       bool
	nJobs         int
	round         int
	shapeFallback bool
	logger        log.Logger
}

func defaultConfig() *config {
	return &config{
		folds:   DefaultFolds,
		seed:    DefaultSeed,
		shuffle: true,
		nJobs:   1,
		round:   DefaultRound,
	}
}

func newConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLoggerWithName("ensemble")
	}
	return cfg
}

// Option configures a stacking call.
type Option func(*config)

// WithFolds sets the fold count K used for out-of-fold predictions and for
// cross-validating the meta estimator.
func WithFolds(k int) Option {
	return func(c *config) {
		c.folds = k
	}
}

// WithRestack keeps the raw features (and every earlier level's columns)
// alongside each level's new prediction columns.
func WithRestack(restack bool) Option {
	return func(c *config) {
		c.restack = restack
	}
}

// WithMetaEstimator sets the meta estimator. It must expose Fit, Predict and
// Clone. Defaults to linear_model.LinearRegression.
func WithMetaEstimator(est any) Option {
	return func(c *config) {
		c.meta = est
	}
}

// WithSeed sets the seed of the fold splitter.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithShuffle controls whether rows are shuffled before being dealt into
// folds. Without shuffling folds are contiguous blocks.
func WithShuffle(shuffle bool) Option {
	return func(c *config) {
		c.shuffle = shuffle
	}
}

// WithNJobs sets how many folds are fitted concurrently. n <= 0 uses one
// worker per CPU. Results do not depend on n.
func WithNJobs(n int) Option {
	return func(c *config) {
		c.nJobs = n
	}
}

// WithRound sets the decimals of the rendered score grid.
func WithRound(decimals int) Option {
	return func(c *config) {
		c.round = decimals
	}
}

// WithShapeFallback allows inference to feed a level the non-restacked
// table when the restacked one does not match the recorded inputs. Every
// use is reported as a ShapeFallbackWarning. The flag is stored in the
// container.
//
// Each level records the columns it was fitted on, so a container trained
// by StackModels or CreateStackNet always matches and never falls back. The
// fallback only fires for containers whose Restack flag disagrees with the
// recorded inputs, such as one loaded from elsewhere or edited after
// training, and it accepts that drift instead of failing.
func WithShapeFallback(enabled bool) Option {
	return func(c *config) {
		c.shapeFallback = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
