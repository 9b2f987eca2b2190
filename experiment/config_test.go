package experiment

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
data: housing.csv
target: medv
folds: 5
levels:
  - [lr, dt]
  - [knn]
restack: true
`))
	require.NoError(t, err)
	assert.Equal(t, "housing.csv", cfg.Data)
	assert.Equal(t, 5, cfg.Folds)
	assert.Equal(t, [][]string{{"lr", "dt"}, {"knn"}}, cfg.Levels)
	assert.True(t, cfg.Restack)
	assert.False(t, DefaultConfig().Restack)
	// defaults survive decoding
	assert.Equal(t, DefaultTrainSize, cfg.TrainSize)
	assert.Equal(t, "lr", cfg.Meta)
	assert.True(t, cfg.Shuffle)
	assert.Equal(t, 4, cfg.Round)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "data: a.csv\ntarget: y\nlevels: [[lr]]\nfoldz: 3\n"},
		{"missing data", "target: y\nlevels: [[lr]]\n"},
		{"missing target", "data: a.csv\nlevels: [[lr]]\n"},
		{"no levels", "data: a.csv\ntarget: y\n"},
		{"empty level", "data: a.csv\ntarget: y\nlevels: [[lr], []]\n"},
		{"one fold", "data: a.csv\ntarget: y\nlevels: [[lr]]\nfolds: 1\n"},
		{"train size", "data: a.csv\ntarget: y\nlevels: [[lr]]\ntrain_size: 1.5\n"},
		{"normalize", "data: a.csv\ntarget: y\nlevels: [[lr]]\nnormalize: robust\n"},
		{"log level", "data: a.csv\ntarget: y\nlevels: [[lr]]\nlog_level: trace\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	X, y := housing(t, 80)

	var sb strings.Builder
	sb.WriteString("rooms,age,tax,price\n")
	for i := 0; i < X.Rows(); i++ {
		row := X.Data.RawRowView(i)
		sb.WriteString(strings.Join([]string{ftoa(row[0]), ftoa(row[1]), ftoa(row[2]), ftoa(y[i])}, ","))
		sb.WriteString("\n")
	}
	dataPath := filepath.Join(dir, "housing.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(sb.String()), 0o600))

	cfg := DefaultConfig()
	cfg.Data = dataPath
	cfg.Target = "price"
	cfg.Folds = 4
	cfg.Normalize = "zscore"
	cfg.Levels = [][]string{{"lr", "dt"}, {"ridge"}}
	cfg.Finalize = true
	cfg.Output = filepath.Join(dir, "stack.gob")
	require.NoError(t, cfg.Validate())

	report, err := Run(context.Background(), cfg, quiet())
	require.NoError(t, err)
	require.NotNil(t, report.Holdout)
	assert.Len(t, report.Holdout.Labels, 24)
	assert.Equal(t, "Final StackNet", report.Stack.Name())
	assert.FileExists(t, cfg.Output)

	p, err := LoadModel(cfg.Output)
	require.NoError(t, err)
	labels, err := p.Predict(context.Background(), X)
	require.NoError(t, err)
	assert.Len(t, labels, 80)
}
