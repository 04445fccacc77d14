package tracking

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DirSession is a Session that stores everything under <root>/<id>/:
//
//	metrics.jsonl          one JSON object per metric point
//	artifacts/<dest>       uploaded artifacts
//	images/<channel>/<name>.png
//	run.yaml               id, state, properties and tags
type DirSession struct {
	mu sync.Mutex

	fs  afero.Fs // where the session is stored
	src afero.Fs // where uploaded files are read from
	dir string
	id  string
	now func() time.Time

	running    bool
	counters   map[string]int
	properties map[string]string
	tags       []string
}

var _ Session = (*DirSession)(nil)

const osAppend = os.O_APPEND | os.O_CREATE | os.O_WRONLY

// DirOption configures a DirSession
type DirOption func(*DirSession)

// WithSourceFs sets the filesystem uploaded files are read from. The
// default is the OS filesystem.
func WithSourceFs(fs afero.Fs) DirOption {
	return func(s *DirSession) { s.src = fs }
}

// WithClock overrides the timestamp source for metric points
func WithClock(now func() time.Time) DirOption {
	return func(s *DirSession) { s.now = now }
}

// NewDirSession creates a running session in a new directory under root
func NewDirSession(fs afero.Fs, root string, opts ...DirOption) (*DirSession, error) {
	s := &DirSession{
		fs:         fs,
		src:        afero.NewOsFs(),
		id:         uuid.NewString(),
		now:        time.Now,
		running:    true,
		counters:   make(map[string]int),
		properties: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dir = filepath.Join(root, s.id)

	for _, sub := range []string{"artifacts", "images"} {
		if err := fs.MkdirAll(filepath.Join(s.dir, sub), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create session directory %s", s.dir)
		}
	}
	if err := s.flushRun(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DirSession) ID() string { return s.id }

// Dir returns the session directory
func (s *DirSession) Dir() string { return s.dir }

func (s *DirSession) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

type metricLine struct {
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp_ms"`
}

func (s *DirSession) LogMetric(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMetric(name, float64(s.counters[name]), value)
}

func (s *DirSession) LogMetricPoint(name string, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendMetric(name, x, y)
}

func (s *DirSession) appendMetric(name string, x, y float64) error {
	if !s.running {
		return ErrSessionStopped
	}
	line, err := json.Marshal(metricLine{Name: name, X: x, Y: y, Timestamp: s.now().UnixMilli()})
	if err != nil {
		return errors.Wrapf(err, "encode metric %s", name)
	}
	f, err := s.fs.OpenFile(filepath.Join(s.dir, "metrics.jsonl"), osAppend, 0o644)
	if err != nil {
		return errors.Wrap(err, "open metrics file")
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "write metric %s", name)
	}
	if err := f.Close(); err != nil {
		return errors.WithStack(err)
	}
	s.counters[name]++
	return nil
}

func (s *DirSession) LogArtifact(path, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSessionStopped
	}
	return s.copyIn(path, filepath.Join(s.dir, "artifacts", filepath.Clean("/"+destination)))
}

func (s *DirSession) LogImage(channel string, img Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSessionStopped
	}
	if err := img.validate(); err != nil {
		return err
	}
	dst := filepath.Join(s.dir, "images", filepath.Clean("/"+channel), filepath.Clean("/"+img.Name+".png"))
	if img.Path != "" {
		return s.copyIn(img.Path, dst)
	}
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(afero.WriteFile(s.fs, dst, img.Data, 0o644), "write image %s", img.Name)
}

// copyIn copies src from the source filesystem to dst in the session
func (s *DirSession) copyIn(src, dst string) error {
	data, err := afero.ReadFile(s.src, src)
	if err != nil {
		return errors.Wrapf(err, "read %s", src)
	}
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrapf(afero.WriteFile(s.fs, dst, data, 0o644), "write %s", dst)
}

func (s *DirSession) SetProperty(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSessionStopped
	}
	s.properties[key] = value
	return s.flushRun()
}

func (s *DirSession) AppendTags(tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSessionStopped
	}
	s.tags = append(s.tags, tags...)
	return s.flushRun()
}

func (s *DirSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.flushRun()
}

// RunInfo is the content of run.yaml
type RunInfo struct {
	ID         string            `yaml:"id"`
	Running    bool              `yaml:"running"`
	Properties map[string]string `yaml:"properties"`
	Tags       []string          `yaml:"tags"`
}

func (s *DirSession) flushRun() error {
	data, err := yaml.Marshal(RunInfo{
		ID:         s.id,
		Running:    s.running,
		Properties: s.properties,
		Tags:       s.tags,
	})
	if err != nil {
		return errors.Wrap(err, "encode run.yaml")
	}
	return errors.Wrap(afero.WriteFile(s.fs, filepath.Join(s.dir, "run.yaml"), data, 0o644), "write run.yaml")
}

// ReadRunInfo loads run.yaml from a session directory
func ReadRunInfo(fs afero.Fs, dir string) (*RunInfo, error) {
	data, err := afero.ReadFile(fs, filepath.Join(dir, "run.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "read run.yaml")
	}
	var info RunInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "decode run.yaml")
	}
	return &info, nil
}
