package ensemble

import (
	"github.com/YuminosukeSato/stackgo/core/table"
)

// Assemble builds the input table of the next level from the current table
// and the prediction columns a level just produced.
//
// With restack the result is [current columns in order, new columns in
// estimator order]. Without restack the result is the new columns only, so
// raw features and older levels are dropped. StackModels, CreateStackNet and
// StackContainer.Predict all build their tables through this function.
func Assemble(current, predictions *table.Table, restack bool) (*table.Table, error) {
	if !restack {
		return predictions, nil
	}
	return table.HStack(current, predictions)
}

// AssembledColumns returns the column names Assemble would produce without
// touching any data.
func AssembledColumns(current, predictions []string, restack bool) []string {
	if !restack {
		return append([]string(nil), predictions...)
	}
	out := make([]string, 0, len(current)+len(predictions))
	out = append(out, current...)
	return append(out, predictions...)
}
