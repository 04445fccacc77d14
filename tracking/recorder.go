package tracking

import (
	"os"
	"sync"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/google/uuid"
)

// Op names a Session operation
type Op string

const (
	OpLogMetric   Op = "log_metric"
	OpLogArtifact Op = "log_artifact"
	OpLogImage    Op = "log_image"
	OpSetProperty Op = "set_property"
	OpAppendTags  Op = "append_tags"
)

// MetricPoint is one recorded metric value. X is the point's position in
// its channel when it was logged without one.
type MetricPoint struct {
	Name string
	X    float64
	Y    float64
}

// Artifact is one recorded artifact upload
type Artifact struct {
	Destination string
	Content     []byte
}

// RecordedImage is one recorded image upload
type RecordedImage struct {
	Channel string
	Name    string
	Data    []byte
}

// Property is one recorded property assignment
type Property struct {
	Key   string
	Value string
}

// Recorder is an in-memory Session. It keeps every call in order and can be
// told to fail specific operations.
type Recorder struct {
	mu sync.Mutex

	id      string
	stopped bool
	failOn  map[Op]error

	calls      []Op
	metrics    []MetricPoint
	artifacts  []Artifact
	images     []RecordedImage
	properties []Property
	tags       []string
}

var _ Session = (*Recorder)(nil)

// NewRecorder returns a running Recorder with a random ID
func NewRecorder() *Recorder {
	return &Recorder{id: uuid.NewString(), failOn: make(map[Op]error)}
}

// FailOn makes every later call to op return err. A nil err clears it.
func (r *Recorder) FailOn(op Op, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failOn, op)
		return
	}
	r.failOn[op] = err
}

func (r *Recorder) ID() string { return r.id }

func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped
}

// begin records op and returns the injected or stopped error. Callers hold
// r.mu.
func (r *Recorder) begin(op Op) error {
	if r.stopped {
		return ErrSessionStopped
	}
	r.calls = append(r.calls, op)
	return r.failOn[op]
}

func (r *Recorder) LogMetric(name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpLogMetric); err != nil {
		return err
	}
	r.metrics = append(r.metrics, MetricPoint{Name: name, X: float64(r.channelLen(name)), Y: value})
	return nil
}

func (r *Recorder) LogMetricPoint(name string, x, y float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpLogMetric); err != nil {
		return err
	}
	r.metrics = append(r.metrics, MetricPoint{Name: name, X: x, Y: y})
	return nil
}

func (r *Recorder) channelLen(name string) int {
	n := 0
	for _, m := range r.metrics {
		if m.Name == name {
			n++
		}
	}
	return n
}

func (r *Recorder) LogArtifact(path, destination string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpLogArtifact); err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read artifact %s", path)
	}
	r.artifacts = append(r.artifacts, Artifact{Destination: destination, Content: content})
	return nil
}

func (r *Recorder) LogImage(channel string, img Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpLogImage); err != nil {
		return err
	}
	if err := img.validate(); err != nil {
		return err
	}
	data := img.Data
	if img.Path != "" {
		var err error
		if data, err = os.ReadFile(img.Path); err != nil {
			return errors.Wrapf(err, "read image %s", img.Path)
		}
	}
	r.images = append(r.images, RecordedImage{Channel: channel, Name: img.Name, Data: data})
	return nil
}

func (r *Recorder) SetProperty(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpSetProperty); err != nil {
		return err
	}
	r.properties = append(r.properties, Property{Key: key, Value: value})
	return nil
}

func (r *Recorder) AppendTags(tags ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.begin(OpAppendTags); err != nil {
		return err
	}
	r.tags = append(r.tags, tags...)
	return nil
}

func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

// Calls returns every operation attempted while running, in order,
// including ones that failed.
func (r *Recorder) Calls() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.calls...)
}

// Metrics returns the recorded metric points in order
func (r *Recorder) Metrics() []MetricPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MetricPoint(nil), r.metrics...)
}

// Artifacts returns the recorded artifact uploads in order
func (r *Recorder) Artifacts() []Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Artifact(nil), r.artifacts...)
}

// Images returns the recorded image uploads in order
func (r *Recorder) Images() []RecordedImage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedImage(nil), r.images...)
}

// Properties returns the recorded property assignments in order
func (r *Recorder) Properties() []Property {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Property(nil), r.properties...)
}

// Tags returns the recorded tags in order
func (r *Recorder) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tags...)
}
