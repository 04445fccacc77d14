package jsonsync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/pkg/log"
	"github.com/spf13/afero"
)

// Generated file name patterns; '*' is replaced by a random string.
const (
	ScriptPattern = "neptune_sync_main_*.py"
	ConfigPattern = "neptune_sync_config_*.yaml"
)

// DefaultTool is the synchronization tool invoked by Sync
const DefaultTool = "neptune"

// Syncer converts an experiment JSON file into a driver script and a config
// file, runs the synchronization tool on them and removes both files.
// The zero value uses the OS filesystem, the current directory and
// ExecRunner.
type Syncer struct {
	Fs      afero.Fs   // filesystem for the input and the generated files
	WorkDir string     // directory for the generated files and the tool
	Tool    string     // synchronization tool, "neptune" by default
	Runner  Runner     // runs the tool
	Logger  log.Logger // defaults to the package logger named "jsonsync"
}

func (s *Syncer) defaults() {
	if s.Fs == nil {
		s.Fs = afero.NewOsFs()
	}
	if s.WorkDir == "" {
		s.WorkDir = "."
	}
	if s.Tool == "" {
		s.Tool = DefaultTool
	}
	if s.Runner == nil {
		s.Runner = ExecRunner{}
	}
	if s.Logger == nil {
		s.Logger = log.GetLoggerWithName("jsonsync")
	}
}

// Load reads and parses the experiment file at path
func (s *Syncer) Load(path string) (*Record, error) {
	s.defaults()
	data, err := afero.ReadFile(s.Fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return DecodeRecord(path, data)
}

// Sync sends the experiment at path to project. path must be valid UTF-8.
// The input is parsed before anything is written, so malformed input leaves
// no files behind and runs nothing. The generated files are removed whether
// or not the tool succeeds; a removal failure is reported as a
// CleanupWarning and does not change the returned error.
func (s *Syncer) Sync(ctx context.Context, path, project string) error {
	s.defaults()
	if project == "" {
		return errors.NewValueError("Sync", "project name is empty")
	}
	if !utf8.ValidString(path) {
		return errors.NewValueError("Sync", fmt.Sprintf("path %q is not valid UTF-8 and cannot be written into the driver script", path))
	}
	logger := s.Logger.With(log.FilePathKey, path, log.ProjectKey, project)

	rec, err := s.Load(path)
	if err != nil {
		return err
	}
	jsonPath, err := filepath.Abs(path)
	if err != nil {
		return errors.WithStack(err)
	}

	script, err := s.writeTemp(ScriptPattern, func(w io.Writer) error { return WriteScript(w, jsonPath) })
	if script != "" {
		defer s.remove(script)
	}
	if err != nil {
		return err
	}
	config, err := s.writeTemp(ConfigPattern, func(w io.Writer) error { return WriteConfig(w, rec) })
	if config != "" {
		defer s.remove(config)
	}
	if err != nil {
		return err
	}

	scriptName := filepath.Base(script)
	cmd := Command{
		Name: s.Tool,
		Args: []string{
			"run",
			"--exclude", scriptName,
			"--project", project,
			"--config", filepath.Base(config),
			scriptName,
		},
		Dir: s.WorkDir,
	}

	logger.Info("Running synchronization tool",
		log.ScriptKey, script,
		log.ConfigKey, config,
		log.CommandKey, cmd.String(),
	)
	start := time.Now()
	if err := s.Runner.Run(ctx, cmd); err != nil {
		var se *errors.SubprocessError
		if errors.As(err, &se) {
			logger.Error("Synchronization tool failed", err, log.ExitCodeKey, se.ExitCode)
		}
		return err
	}
	logger.Info("Synchronization finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// writeTemp creates a uniquely named file in WorkDir and fills it with
// render. The path is returned even when writing fails so that the caller
// can remove it.
func (s *Syncer) writeTemp(pattern string, render func(io.Writer) error) (string, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", err
	}

	f, err := afero.TempFile(s.Fs, s.WorkDir, pattern)
	if err != nil {
		return "", errors.Wrapf(err, "create %s in %s", pattern, s.WorkDir)
	}
	name := f.Name()
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return name, errors.Wrapf(err, "write %s", name)
	}
	return name, errors.Wrapf(f.Close(), "close %s", name)
}

func (s *Syncer) remove(path string) {
	if err := s.Fs.Remove(path); err != nil {
		errors.Warn(errors.NewCleanupWarning(path, err))
	}
}
