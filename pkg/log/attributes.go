// Package log defines standard attribute keys for stacking experiments.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "stack.level") so that logs from training and inference can be filtered
// and joined on the same fields.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type, e.g. "LinearRegression".
	ModelNameKey = "model.name"

	// ModelFamilyKey carries the capability tag assigned at registration.
	ModelFamilyKey = "model.family"

	// EstimatorIDKey identifies a specific trained artifact (container ID, run ID).
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
)

// Stacking
const (
	// StackLevelKey is the level index (0 is the base level).
	StackLevelKey = "stack.level"

	// StackLevelTagKey is "BaseLevel", "InterLevel" or "Meta".
	StackLevelTagKey = "stack.level_tag"

	// StackPositionKey is the position of an estimator within its level.
	StackPositionKey = "stack.position"

	// StackFoldKey is the 1-based fold number.
	StackFoldKey = "stack.fold"

	// StackFoldsKey is the fold count K.
	StackFoldsKey = "stack.folds"

	// StackRestackKey records the restack flag.
	StackRestackKey = "stack.restack"

	// StackColumnsKey lists the assembled column names.
	StackColumnsKey = "stack.columns"
)

// Performance and Metrics
const (
	DurationMsKey = "perf.duration_ms"
	MAEKey        = "metrics.mae"
	MSEKey        = "metrics.mse"
	RMSEKey       = "metrics.rmse"
	R2ScoreKey    = "metrics.r2_score"
	MaxErrorKey   = "metrics.max_error"
	RandomSeedKey = "config.random_seed"
	ErrorTypeKey  = "error.type"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
