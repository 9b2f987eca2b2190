package experiment

import (
	"bytes"
	"context"
	"os"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/pkg/log"
	"github.com/YuminosukeSato/stackgo/sklearn/ensemble"
	"gopkg.in/yaml.v3"
)

// Config describes a stacking run read from YAML.
//
//	data: housing.csv
//	target: medv
//	levels:
//	  - [lr, dt, knn]
//	  - [ridge]
//	meta: lr
//	restack: true
//	output: stack.gob
type Config struct {
	Data      string  `yaml:"data"`
	Target    string  `yaml:"target"`
	TrainSize float64 `yaml:"train_size"`
	Seed      uint64  `yaml:"seed"`
	Normalize string  `yaml:"normalize"`
	Folds     int     `yaml:"folds"`
	Shuffle   bool    `yaml:"shuffle"`
	Round     int     `yaml:"round"`
	NJobs     int     `yaml:"n_jobs"`

	// Levels lists model ids per level; one level gives a single layer stack.
	Levels        [][]string `yaml:"levels"`
	Meta          string     `yaml:"meta"`
	Restack       bool       `yaml:"restack"`
	Finalize      bool       `yaml:"finalize"`
	ShapeFallback bool       `yaml:"shape_fallback"`

	Output   string `yaml:"output"`
	Plot     string `yaml:"plot"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the defaults applied before a file is decoded.
func DefaultConfig() *Config {
	return &Config{
		TrainSize: DefaultTrainSize,
		Seed:      ensemble.DefaultSeed,
		Folds:     ensemble.DefaultFolds,
		Shuffle:   true,
		Round:     ensemble.DefaultRound,
		NJobs:     1,
		Meta:      "lr",
		Output:    "stack.gob",
		LogLevel:  "info",
	}
}

// LoadConfig reads and validates a YAML config. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates YAML config data.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	switch {
	case c.Data == "":
		return errors.NewValidationError("data", "is required", c.Data)
	case c.Target == "":
		return errors.NewValidationError("target", "is required", c.Target)
	case c.TrainSize <= 0 || c.TrainSize > 1:
		return errors.NewValidationError("train_size", "must be in (0, 1]", c.TrainSize)
	case c.Folds < 2:
		return errors.NewValidationError("folds", "must be at least 2", c.Folds)
	case c.Round < 0:
		return errors.NewValidationError("round", "must not be negative", c.Round)
	case c.NJobs < 0:
		return errors.NewValidationError("n_jobs", "must not be negative", c.NJobs)
	case c.Normalize != "" && c.Normalize != "zscore" && c.Normalize != "minmax":
		return errors.NewValidationError("normalize", "must be zscore or minmax", c.Normalize)
	case len(c.Levels) == 0:
		return errors.NewValidationError("levels", "at least one level is required", c.Levels)
	}
	for i, level := range c.Levels {
		if len(level) == 0 {
			return errors.NewValidationError("levels", "level has no models", i)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", err.Error(), c.LogLevel)
	}
	return nil
}

// Options returns the Setup options of c.
func (c *Config) Options() []Option {
	opts := []Option{
		WithTrainSize(c.TrainSize),
		WithSeed(c.Seed),
		WithFolds(c.Folds),
		WithShuffle(c.Shuffle),
		WithRound(c.Round),
		WithNJobs(c.NJobs),
	}
	if c.Normalize != "" {
		opts = append(opts, WithNormalize(c.Normalize))
	}
	return opts
}

// Report is the outcome of Run.
type Report struct {
	RunID string
	Stack *Stack
	// Holdout is nil when the run has no hold-out rows or was finalized.
	Holdout *Prediction
}

// Run executes the config: load data, set up, create the level models,
// stack them, score the hold-out rows and save the pipeline to Output.
func Run(ctx context.Context, c *Config, opts ...Option) (*Report, error) {
	raw, err := ReadCSV(c.Data)
	if err != nil {
		return nil, err
	}
	X, y, err := SplitTarget(raw, c.Target)
	if err != nil {
		return nil, err
	}
	exp, err := Setup(X, y, append(c.Options(), opts...)...)
	if err != nil {
		return nil, err
	}

	levels := make([][]*Model, len(c.Levels))
	for i, ids := range c.Levels {
		for _, id := range ids {
			m, err := exp.CreateModel(ctx, id)
			if err != nil {
				return nil, err
			}
			levels[i] = append(levels[i], m)
		}
	}
	meta, err := exp.metaModel(c.Meta)
	if err != nil {
		return nil, err
	}

	stackOpts := []StackOption{
		WithMetaModel(meta),
		WithRestack(c.Restack),
		WithShapeFallback(c.ShapeFallback),
		WithPlot(c.Plot),
	}
	var stack *Stack
	if len(levels) == 1 {
		stack, err = exp.StackModels(ctx, levels[0], stackOpts...)
	} else {
		stack, err = exp.CreateStackNet(ctx, levels, stackOpts...)
	}
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: exp.RunID, Stack: stack}
	if exp.XTest.Rows() > 0 {
		if report.Holdout, err = exp.PredictModel(ctx, stack, nil); err != nil {
			return nil, err
		}
	}
	if c.Finalize {
		final, err := exp.FinalizeModel(ctx, stack)
		if err != nil {
			return nil, err
		}
		report.Stack = final.(*Stack)
	}
	if c.Output != "" {
		if err := exp.SaveModel(report.Stack, c.Output); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// metaModel builds the unfitted meta model for a registry id.
func (e *Experiment) metaModel(id string) (*Model, error) {
	entry, err := e.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	m, err := ensemble.NewMemberWithFamily(entry.New(e.cfg.seed), entry.Family)
	if err != nil {
		return nil, err
	}
	return &Model{ID: id, Member: m}, nil
}
