package jsonsync

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/pkg/log"
	"github.com/YuminosukeSato/scigo-neptune/tracking"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{"name":"baseline","parameters":{"lr":0.1,"batch_size":32},"tags":["a","b"],"channels":{"loss":{"x":[0,1],"y":[0,1]}},"properties":{"v":"1"}}`

// fakeRunner captures the command and the generated files while they exist
type fakeRunner struct {
	fs     afero.Fs
	err    error
	calls  int
	cmd    Command
	script string
	config string
}

func (r *fakeRunner) Run(_ context.Context, cmd Command) error {
	r.calls++
	r.cmd = cmd
	script, err := afero.ReadFile(r.fs, cmd.Dir+"/"+cmd.Args[len(cmd.Args)-1])
	if err != nil {
		return err
	}
	config, err := afero.ReadFile(r.fs, cmd.Dir+"/"+cmd.Args[6])
	if err != nil {
		return err
	}
	r.script, r.config = string(script), string(config)
	return r.err
}

func newSyncer(t *testing.T, doc string) (*Syncer, *fakeRunner) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/work/exp.json", []byte(doc), 0o644))
	logger, _ := log.NewTestLogger(log.LevelDebug)
	runner := &fakeRunner{fs: fs}
	return &Syncer{Fs: fs, WorkDir: "/work", Runner: runner, Logger: logger}, runner
}

func generatedFiles(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	matches, err := afero.Glob(fs, "/work/neptune_sync_*")
	require.NoError(t, err)
	return matches
}

func TestSyncSample(t *testing.T) {
	s, runner := newSyncer(t, sampleJSON)

	require.NoError(t, s.Sync(context.Background(), "/work/exp.json", "team/project"))
	require.Equal(t, 1, runner.calls)

	args := runner.cmd.Args
	require.Len(t, args, 8)
	assert.Equal(t, "neptune", runner.cmd.Name)
	assert.Equal(t, "/work", runner.cmd.Dir)
	assert.Equal(t, []string{"run", "--exclude"}, args[:2])
	assert.Equal(t, []string{"--project", "team/project", "--config"}, args[3:6])
	assert.Equal(t, args[2], args[7], "excluded script is the one that runs")
	assert.True(t, strings.HasPrefix(args[2], "neptune_sync_main_") && strings.HasSuffix(args[2], ".py"))
	assert.True(t, strings.HasPrefix(args[6], "neptune_sync_config_") && strings.HasSuffix(args[6], ".yaml"))

	assert.Contains(t, runner.config, "name: baseline\n")
	assert.Contains(t, runner.config, "parameters:\n")
	assert.Contains(t, runner.config, "  lr: 0.1\n")
	assert.Contains(t, runner.config, "  batch_size: 32\n")
	assert.Less(t, strings.Index(runner.config, "lr:"), strings.Index(runner.config, "batch_size:"))

	assert.Contains(t, runner.script, `with open("/work/exp.json", 'r') as fp:`)
	assert.Contains(t, runner.script, "ctx.channel_send(name, x, y)")
	assert.Contains(t, runner.script, "ctx.properties[name] = value")
	assert.Contains(t, runner.script, "ctx.tags.extend(data.get('tags', []))")

	assert.Empty(t, generatedFiles(t, s.Fs))
}

func TestSyncSubprocessFailureStillCleansUp(t *testing.T) {
	s, runner := newSyncer(t, sampleJSON)
	runner.err = errors.NewSubprocessError("neptune run", 2, errors.New("exit status 2"))

	err := s.Sync(context.Background(), "/work/exp.json", "team/project")

	var se *errors.SubprocessError
	require.True(t, errors.As(err, &se), "want SubprocessError, got %v", err)
	assert.Equal(t, 2, se.ExitCode)
	assert.Empty(t, generatedFiles(t, s.Fs))
}

func TestSyncMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"name": "baseline",`},
		{"missing name", `{"parameters": {}}`},
		{"missing parameters", `{"name": "baseline"}`},
		{"name not string", `{"name": 3, "parameters": {}}`},
		{"nested parameter", `{"name": "a", "parameters": {"opt": {"lr": 1}}}`},
		{"tags not strings", `{"name": "a", "parameters": {}, "tags": [1]}`},
		{"channel without y", `{"name": "a", "parameters": {}, "channels": {"loss": {"x": [1]}}}`},
		{"channel non-numeric", `{"name": "a", "parameters": {}, "channels": {"loss": {"x": ["1"], "y": [1]}}}`},
		{"top-level array", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, runner := newSyncer(t, tt.doc)

			err := s.Sync(context.Background(), "/work/exp.json", "team/project")

			var mi *errors.MalformedInputError
			require.True(t, errors.As(err, &mi), "want MalformedInputError, got %v", err)
			assert.Equal(t, "/work/exp.json", mi.Path)
			assert.Zero(t, runner.calls)
			assert.Empty(t, generatedFiles(t, s.Fs))
		})
	}
}

func TestSyncRequiresProject(t *testing.T) {
	s, runner := newSyncer(t, sampleJSON)
	err := s.Sync(context.Background(), "/work/exp.json", "")
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
	assert.Zero(t, runner.calls)
}

func TestSyncRejectsNonUTF8Path(t *testing.T) {
	s, runner := newSyncer(t, sampleJSON)
	path := "/work/a\xffb.json"
	require.NoError(t, afero.WriteFile(s.Fs, path, []byte(sampleJSON), 0o644))

	err := s.Sync(context.Background(), path, "team/project")

	var ve *errors.ValueError
	require.True(t, errors.As(err, &ve), "want ValueError, got %v", err)
	assert.Zero(t, runner.calls)
	assert.Empty(t, generatedFiles(t, s.Fs))

	var buf bytes.Buffer
	assert.True(t, errors.As(WriteScript(&buf, path), &ve))
	assert.Zero(t, buf.Len())
}

func TestSyncMissingFile(t *testing.T) {
	s, runner := newSyncer(t, sampleJSON)
	assert.Error(t, s.Sync(context.Background(), "/work/missing.json", "team/project"))
	assert.Zero(t, runner.calls)
}

// removeFailingFs refuses to delete anything
type removeFailingFs struct {
	afero.Fs
}

func (removeFailingFs) Remove(string) error { return os.ErrPermission }

func TestSyncCleanupFailureIsWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	s, runner := newSyncer(t, sampleJSON)
	s.Fs = removeFailingFs{Fs: s.Fs}
	runner.fs = s.Fs

	require.NoError(t, s.Sync(context.Background(), "/work/exp.json", "team/project"))
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		var cw *errors.CleanupWarning
		assert.True(t, errors.As(w, &cw))
		assert.ErrorIs(t, w, os.ErrPermission)
	}
}

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord("exp.json", []byte(`{
		"name": "run 7",
		"parameters": {"optimizer": "adam", "threshold": "0.5", "shuffle": true, "seed": null, "lr": 1e-3},
		"channels": {"b": {"x": [0, 1, 2], "y": [5]}, "a": {"x": [1], "y": [2]}},
		"properties": {"epochs": 10}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "run 7", rec.Name)
	var keys []string
	for _, p := range rec.Parameters {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"optimizer", "threshold", "shuffle", "seed", "lr"}, keys)
	require.Len(t, rec.Channels, 2)
	assert.Equal(t, "b", rec.Channels[0].Name, "document order is kept")
	assert.Equal(t, 1, rec.Channels[0].Points())
	assert.Equal(t, []Property{{Key: "epochs", Value: "10"}}, rec.Properties)
	assert.Empty(t, rec.Tags)

	var buf bytes.Buffer
	require.NoError(t, WriteConfig(&buf, rec))
	config := buf.String()
	assert.Contains(t, config, "name: run 7\n")
	assert.Contains(t, config, "  optimizer: adam\n")
	assert.Contains(t, config, "  threshold: \"0.5\"\n", "numeric-looking strings stay strings")
	assert.Contains(t, config, "  shuffle: true\n")
	assert.Contains(t, config, "  seed: null\n")
	assert.Contains(t, config, "  lr: 1e-3\n")
}

func TestReplaySample(t *testing.T) {
	rec, err := DecodeRecord("exp.json", []byte(sampleJSON))
	require.NoError(t, err)

	session := tracking.NewRecorder()
	require.NoError(t, Replay(session, rec))

	assert.Equal(t, []tracking.MetricPoint{
		{Name: "loss", X: 0, Y: 0},
		{Name: "loss", X: 1, Y: 1},
	}, session.Metrics())
	assert.Equal(t, []tracking.Property{{Key: "v", Value: "1"}}, session.Properties())
	assert.Equal(t, []string{"a", "b"}, session.Tags())
}

func TestReplayOptionalSectionsAndFailures(t *testing.T) {
	rec, err := DecodeRecord("exp.json", []byte(`{"name": "x", "parameters": {}}`))
	require.NoError(t, err)

	session := tracking.NewRecorder()
	require.NoError(t, Replay(session, rec))
	assert.Empty(t, session.Calls())

	full, err := DecodeRecord("exp.json", []byte(sampleJSON))
	require.NoError(t, err)
	failing := tracking.NewRecorder()
	failing.FailOn(tracking.OpSetProperty, errors.New("read-only"))
	err = Replay(failing, full)
	var ue *errors.UploadError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, errors.UploadProperty, ue.Kind)
	assert.Empty(t, failing.Tags())

	stopped := tracking.NewRecorder()
	require.NoError(t, stopped.Stop())
	var nas *errors.NoActiveSessionError
	assert.True(t, errors.As(Replay(stopped, full), &nas))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var stdout bytes.Buffer
	r := ExecRunner{Stdout: &stdout, Stderr: &stdout}

	require.NoError(t, r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo ok"}}))
	assert.Equal(t, "ok\n", stdout.String())

	err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
	var se *errors.SubprocessError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 3, se.ExitCode)
	assert.Equal(t, "sh -c exit 3", se.Command)

	err = r.Run(context.Background(), Command{Name: "definitely-not-a-real-tool-7f3a"})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, -1, se.ExitCode)
}

func TestPyString(t *testing.T) {
	got, err := pyString(`C:\data\it's "quoted".json`)
	require.NoError(t, err)
	assert.Equal(t, `"C:\\data\\it's \"quoted\".json"`, got)
}

func TestReplayPropertiesAreStrings(t *testing.T) {
	rec, err := DecodeRecord("exp.json", []byte(`{"name": "x", "parameters": {}, "properties": {"epochs": 10, "shuffle": true, "note": "ok"}}`))
	require.NoError(t, err)

	session := tracking.NewRecorder()
	require.NoError(t, Replay(session, rec))
	assert.Equal(t, []tracking.Property{
		{Key: "epochs", Value: "10"},
		{Key: "shuffle", Value: "true"},
		{Key: "note", Value: "ok"},
	}, session.Properties())
}
