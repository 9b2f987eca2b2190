package ensemble

import (
	"fmt"

	"github.com/YuminosukeSato/stackgo/pkg/errors"
)

// LevelTag distinguishes the base level from intermediate levels in column names.
type LevelTag string

const (
	BaseLevel  LevelTag = "BaseLevel"
	InterLevel LevelTag = "InterLevel"
)

// TagFor returns the tag of a level index. Level 0 is the base level.
func TagFor(level int) LevelTag {
	if level == 0 {
		return BaseLevel
	}
	return InterLevel
}

func stageFor(level int) errors.Stage {
	if level == 0 {
		return errors.StageBaseLevel
	}
	return errors.StageIntermediateLevel
}

// ColumnName is the name of the prediction column produced by the estimator
// at position within level: <Name>_<LevelTag>_<level>_<position>.
// It depends only on its arguments so training and inference agree.
func ColumnName(name string, level, position int) string {
	return fmt.Sprintf("%s_%s_%d_%d", name, TagFor(level), level, position)
}

// LevelColumns returns the prediction column names of a level in estimator order.
func LevelColumns(names []string, level int) []string {
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = ColumnName(n, level, i)
	}
	return cols
}

func memberNames(members []Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}
