package ensemble

import (
	"reflect"
	"strings"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
)

// Member is an estimator registered for stacking. Name and Family are fixed
// at registration and never re-derived from the estimator afterwards.
type Member struct {
	Name      string
	Family    model.Family
	Estimator model.Regressor
}

// NewMember checks that est can be fitted, predicted and cloned and derives
// its display name and family tag. Clone is how every fold and every
// deployable fit gets a fresh unfitted copy, so an estimator that can only
// fit and predict is rejected with the missing "Clone" method named.
func NewMember(est any) (Member, error) {
	return newMember(errors.StageBaseLevel, 0, est)
}

// NewMemberWithFamily is NewMember with an explicit family tag.
func NewMemberWithFamily(est any, family model.Family) (Member, error) {
	m, err := NewMember(est)
	if err != nil {
		return Member{}, err
	}
	m.Family = family
	return m, nil
}

func newMember(stage errors.Stage, index int, est any) (Member, error) {
	if m, ok := est.(Member); ok {
		if m.Estimator == nil {
			return Member{}, errors.NewUnsupportedEstimatorError(stage, index, "ensemble.Member", "Fit, Predict, Clone")
		}
		return m, nil
	}

	var missing []string
	if _, ok := est.(model.Fitter); !ok {
		missing = append(missing, "Fit")
	}
	if _, ok := est.(model.Predictor); !ok {
		missing = append(missing, "Predict")
	}
	if _, ok := est.(model.Cloner); !ok {
		missing = append(missing, "Clone")
	}
	if est == nil || len(missing) > 0 {
		if est == nil {
			missing = []string{"Fit", "Predict", "Clone"}
		}
		return Member{}, errors.NewUnsupportedEstimatorError(stage, index, typeName(est), strings.Join(missing, ", "))
	}

	reg := est.(model.Regressor)
	m := Member{Name: typeName(est), Family: model.FamilyOther, Estimator: reg}
	if n, ok := est.(model.Named); ok && n.Name() != "" {
		m.Name = n.Name()
	}
	if f, ok := est.(model.FamilyTagger); ok {
		m.Family = f.Family()
	}
	return m, nil
}

func newMembers(stage errors.Stage, ests []any) ([]Member, error) {
	if len(ests) == 0 {
		return nil, errors.NewValueError(string(stage), "estimator list is empty")
	}
	members := make([]Member, len(ests))
	for i, est := range ests {
		m, err := newMember(stage, i, est)
		if err != nil {
			return nil, err
		}
		members[i] = m
	}
	return members, nil
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
