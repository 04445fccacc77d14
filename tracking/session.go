// Package tracking defines the client surface of an experiment-tracking
// session and two implementations: an in-memory Recorder and a
// directory-backed DirSession.
package tracking

import (
	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
)

// Image is an image upload. Exactly one of Path and Data is set.
type Image struct {
	Name string // name shown in the channel
	Path string // file to upload
	Data []byte // encoded image to upload
}

func (img Image) validate() error {
	if img.Name == "" {
		return errors.New("image name is empty")
	}
	if (img.Path == "") == (img.Data == nil) {
		return errors.Newf("image %q must have exactly one of Path and Data", img.Name)
	}
	return nil
}

// Session is a running experiment in a tracking service.
//
// Implementations must copy any file content they need before returning
// from LogArtifact or LogImage; callers delete those files afterwards.
type Session interface {
	// ID identifies the session
	ID() string
	// Running reports whether the session accepts records
	Running() bool

	// LogMetric appends value to the numeric channel name
	LogMetric(name string, value float64) error
	// LogMetricPoint appends (x, y) to the numeric channel name
	LogMetricPoint(name string, x, y float64) error
	// LogArtifact uploads the file at path under destination
	LogArtifact(path, destination string) error
	// LogImage appends img to the image channel
	LogImage(channel string, img Image) error
	// SetProperty sets a string property
	SetProperty(key, value string) error
	// AppendTags adds tags to the session
	AppendTags(tags ...string) error

	// Stop ends the session
	Stop() error
}

// ErrSessionStopped is returned by operations on a stopped session
var ErrSessionStopped = errors.New("tracking session is stopped")
