package tracking

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRecordsInOrder(t *testing.T) {
	r := NewRecorder()
	require.True(t, r.Running())
	require.NotEmpty(t, r.ID())

	artifact := filepath.Join(t.TempDir(), "bst.model")
	require.NoError(t, os.WriteFile(artifact, []byte("tree\n"), 0o600))

	require.NoError(t, r.LogMetric("train-rmse", 1.5))
	require.NoError(t, r.LogMetric("train-rmse", 1.2))
	require.NoError(t, r.LogMetricPoint("loss", 10, 0.3))
	require.NoError(t, r.LogArtifact(artifact, "bst.model"))
	require.NoError(t, r.LogImage("trees", Image{Name: "tree_0", Data: []byte("png")}))
	require.NoError(t, r.SetProperty("v", "1"))
	require.NoError(t, r.AppendTags("a", "b"))

	assert.Equal(t, []Op{OpLogMetric, OpLogMetric, OpLogMetric, OpLogArtifact, OpLogImage, OpSetProperty, OpAppendTags}, r.Calls())
	assert.Equal(t, []MetricPoint{
		{Name: "train-rmse", X: 0, Y: 1.5},
		{Name: "train-rmse", X: 1, Y: 1.2},
		{Name: "loss", X: 10, Y: 0.3},
	}, r.Metrics())
	assert.Equal(t, []Artifact{{Destination: "bst.model", Content: []byte("tree\n")}}, r.Artifacts())
	assert.Equal(t, "tree_0", r.Images()[0].Name)
	assert.Equal(t, []Property{{Key: "v", Value: "1"}}, r.Properties())
	assert.Equal(t, []string{"a", "b"}, r.Tags())
}

func TestRecorderFailOn(t *testing.T) {
	r := NewRecorder()
	boom := errors.New("service unavailable")
	r.FailOn(OpLogArtifact, boom)

	err := r.LogArtifact("/does/not/matter", "bst.model")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, r.Artifacts())
	assert.Equal(t, []Op{OpLogArtifact}, r.Calls())

	r.FailOn(OpLogArtifact, nil)
	assert.Error(t, r.LogArtifact("/does/not/exist", "bst.model"), "missing file should still fail")
}

func TestRecorderStopped(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Stop())
	assert.False(t, r.Running())
	assert.ErrorIs(t, r.LogMetric("m", 1), ErrSessionStopped)
	assert.Empty(t, r.Calls())
}

func TestImageValidation(t *testing.T) {
	r := NewRecorder()
	assert.Error(t, r.LogImage("c", Image{Name: "both", Path: "x.png", Data: []byte("x")}))
	assert.Error(t, r.LogImage("c", Image{Name: "neither"}))
	assert.Error(t, r.LogImage("c", Image{Data: []byte("x")}))
}

func TestDirSession(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/tmp/run/bst.model", []byte("tree\n"), 0o600))
	require.NoError(t, afero.WriteFile(src, "/tmp/run/tree_0.png", []byte("png-bytes"), 0o600))

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s, err := NewDirSession(fs, "/runs", WithSourceFs(src), WithClock(func() time.Time { return clock }))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/runs", s.ID()), s.Dir())

	require.NoError(t, s.LogMetric("train-rmse", 0.5))
	require.NoError(t, s.LogMetric("train-rmse", 0.4))
	require.NoError(t, s.LogMetricPoint("loss", 3, 0.1))
	require.NoError(t, s.LogArtifact("/tmp/run/bst.model", "bst.model"))
	require.NoError(t, s.LogImage("trees", Image{Name: "tree_0", Path: "/tmp/run/tree_0.png"}))
	require.NoError(t, s.LogImage("feature_importance", Image{Name: "feature_importance", Data: []byte("chart")}))
	require.NoError(t, s.SetProperty("v", "1"))
	require.NoError(t, s.AppendTags("a", "b"))

	metrics, err := afero.ReadFile(fs, filepath.Join(s.Dir(), "metrics.jsonl"))
	require.NoError(t, err)
	var lines []metricLine
	sc := bufio.NewScanner(bytes.NewReader(metrics))
	for sc.Scan() {
		var l metricLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 3)
	assert.Equal(t, metricLine{Name: "train-rmse", X: 1, Y: 0.4, Timestamp: clock.UnixMilli()}, lines[1])
	assert.Equal(t, 3.0, lines[2].X)

	model, err := afero.ReadFile(fs, filepath.Join(s.Dir(), "artifacts", "bst.model"))
	require.NoError(t, err)
	assert.Equal(t, "tree\n", string(model))

	tree, err := afero.ReadFile(fs, filepath.Join(s.Dir(), "images", "trees", "tree_0.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(tree))

	chart, err := afero.ReadFile(fs, filepath.Join(s.Dir(), "images", "feature_importance", "feature_importance.png"))
	require.NoError(t, err)
	assert.Equal(t, "chart", string(chart))

	require.NoError(t, s.Stop())
	info, err := ReadRunInfo(fs, s.Dir())
	require.NoError(t, err)
	assert.Equal(t, s.ID(), info.ID)
	assert.False(t, info.Running)
	assert.Equal(t, map[string]string{"v": "1"}, info.Properties)
	assert.Equal(t, []string{"a", "b"}, info.Tags)

	assert.ErrorIs(t, s.LogMetric("train-rmse", 0.3), ErrSessionStopped)
}

func TestDirSessionArtifactEscape(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/m", []byte("x"), 0o600))

	s, err := NewDirSession(fs, "/runs", WithSourceFs(src))
	require.NoError(t, err)
	require.NoError(t, s.LogArtifact("/m", "../../outside"))

	exists, err := afero.Exists(fs, filepath.Join(s.Dir(), "artifacts", "outside"))
	require.NoError(t, err)
	assert.True(t, exists, "destination must stay inside the session")
}

func TestDirSessionImageEscape(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewDirSession(fs, "/runs")
	require.NoError(t, err)
	require.NoError(t, s.LogImage("../trees", Image{Name: "../../outside", Data: []byte("png")}))

	exists, err := afero.Exists(fs, filepath.Join(s.Dir(), "images", "trees", "outside.png"))
	require.NoError(t, err)
	assert.True(t, exists, "image must stay inside its channel directory")

	escaped, err := afero.Glob(fs, "/runs/outside.png")
	require.NoError(t, err)
	assert.Empty(t, escaped)
}
