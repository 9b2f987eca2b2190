package experiment

import (
	"sort"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"github.com/YuminosukeSato/stackgo/sklearn/ensemble"
	"github.com/YuminosukeSato/stackgo/sklearn/linear_model"
	"github.com/YuminosukeSato/stackgo/sklearn/neighbors"
	"github.com/YuminosukeSato/stackgo/sklearn/tree"
)

// Factory builds a fresh, unfitted estimator. seed is the experiment seed.
type Factory func(seed uint64) model.Regressor

// Entry is a model library item.
type Entry struct {
	ID     string
	Name   string
	Family model.Family
	New    Factory
}

// Registry maps short model ids ("lr", "dt", ...) to factories.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// DefaultRegistry returns the built-in model library.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range []Entry{
		{ID: "lr", Name: "Linear Regression", Family: model.FamilyLinear, New: func(uint64) model.Regressor {
			return linear_model.NewLinearRegression()
		}},
		{ID: "ridge", Name: "Ridge Regression", Family: model.FamilyLinear, New: func(uint64) model.Regressor {
			return linear_model.NewRidge()
		}},
		{ID: "knn", Name: "K Neighbors Regressor", Family: model.FamilyNeighbors, New: func(uint64) model.Regressor {
			return neighbors.NewKNeighborsRegressor()
		}},
		{ID: "dt", Name: "Decision Tree", Family: model.FamilyTree, New: func(uint64) model.Regressor {
			return tree.NewDecisionTreeRegressor()
		}},
		{ID: "gbr", Name: "Gradient Boosting Regressor", Family: model.FamilyBoosting, New: func(uint64) model.Regressor {
			return ensemble.NewGradientBoostingRegressor()
		}},
	} {
		// ids above are unique
		_ = r.Register(e)
	}
	return r
}

// Register adds e. Ids must be unique.
func (r *Registry) Register(e Entry) error {
	if e.ID == "" || e.New == nil {
		return errors.NewValidationError("entry", "id and factory are required", e.ID)
	}
	if _, ok := r.entries[e.ID]; ok {
		return errors.NewValidationError("entry", "duplicate model id", e.ID)
	}
	r.entries[e.ID] = e
	return nil
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id string) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, errors.NewValidationError("model", "unknown model id", id)
	}
	return e, nil
}

// IDs returns the registered ids in lexical order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
