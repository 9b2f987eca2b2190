package ensemble

import (
	"encoding/gob"
	"fmt"
	"time"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/sklearn/linear_model"
	"github.com/YuminosukeSato/stackgo/sklearn/neighbors"
	"github.com/YuminosukeSato/stackgo/sklearn/tree"
)

func init() {
	gob.Register(&linear_model.LinearRegression{})
	gob.Register(&linear_model.Ridge{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&neighbors.KNeighborsRegressor{})
	gob.Register(&VotingRegressor{})
	gob.Register(&BaggingRegressor{})
	gob.Register(&GradientBoostingRegressor{})
	gob.Register(&AdaBoostRegressor{})
}

// FittedMember is a deployable estimator together with the identity it was
// registered under.
type FittedMember struct {
	Name      string
	Family    model.Family
	Estimator model.Estimator
}

// FittedLevel is one trained level of a stack.
type FittedLevel struct {
	Index   int
	Members []FittedMember
	// Inputs are the columns the members were fitted on, in order.
	Inputs []string
}

// Outputs returns the prediction column names of the level.
func (l *FittedLevel) Outputs() []string {
	names := make([]string, len(l.Members))
	for i, m := range l.Members {
		names[i] = m.Name
	}
	return LevelColumns(names, l.Index)
}

// StackContainer is the deployable artifact of a stacking call. It is
// created once by StackModels or CreateStackNet and only read afterwards;
// retraining produces a new container.
type StackContainer struct {
	ID         string
	CreatedAt  time.Time
	MultiLayer bool
	Restack    bool
	// ShapeFallback enables the restack fallback during Predict.
	ShapeFallback bool

	// RawColumns are the raw feature columns the base level was fitted on.
	RawColumns []string
	Levels     []FittedLevel
	Meta       FittedMember
	MetaInputs []string
}

// Shape returns the number of estimators per level, base level first.
func (c *StackContainer) Shape() []int {
	shape := make([]int, len(c.Levels))
	for i, l := range c.Levels {
		shape[i] = len(l.Members)
	}
	return shape
}

// Validate checks the container is internally consistent: every level has
// members, and each level's recorded inputs follow from the previous level
// by the restack rule.
func (c *StackContainer) Validate() error {
	if len(c.Levels) == 0 {
		return errors.NewValueError("StackContainer", "container has no levels")
	}
	if c.Meta.Estimator == nil {
		return errors.NewValueError("StackContainer", "container has no meta estimator")
	}
	if !c.MultiLayer && len(c.Levels) != 1 {
		return errors.NewValueError("StackContainer", fmt.Sprintf("single layer container has %d levels", len(c.Levels)))
	}
	current := c.RawColumns
	for i := range c.Levels {
		l := &c.Levels[i]
		if l.Index != i {
			return errors.NewValueError("StackContainer", fmt.Sprintf("level %d recorded as index %d", i, l.Index))
		}
		if len(l.Members) == 0 {
			return errors.NewValueError("StackContainer", fmt.Sprintf("level %d has no estimators", i))
		}
		for j, m := range l.Members {
			if m.Estimator == nil {
				return errors.NewValueError("StackContainer", fmt.Sprintf("level %d position %d has no estimator", i, j))
			}
		}
		if !equalColumns(current, l.Inputs) {
			return errors.NewShapeMismatchError(stageFor(i), i, l.Inputs, current)
		}
		current = AssembledColumns(current, l.Outputs(), c.Restack)
	}
	if !equalColumns(current, c.MetaInputs) {
		return errors.NewShapeMismatchError(errors.StageMetaLevel, len(c.Levels), c.MetaInputs, current)
	}
	return nil
}

func (c *StackContainer) String() string {
	kind := "stack"
	if c.MultiLayer {
		kind = "stacknet"
	}
	return fmt.Sprintf("StackContainer(%s, id=%s, shape=%v, meta=%s, restack=%t)", kind, c.ID, c.Shape(), c.Meta.Name, c.Restack)
}

// Save writes the container with gob.
func (c *StackContainer) Save(filename string) error {
	return model.SaveModel(c, filename)
}

// LoadContainer reads a container written by Save and validates its shape.
func LoadContainer(filename string) (*StackContainer, error) {
	var c StackContainer
	if err := model.LoadModel(&c, filename); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return &c, nil
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
