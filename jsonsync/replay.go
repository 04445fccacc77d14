package jsonsync

import (
	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/tracking"
)

// Replay does what the driver script does, directly against session: one
// metric point per (x, y) pair of every channel, then every property, then
// the tags. Property values are sent as strings: a JSON string as its
// content, a number or bool as its JSON text. The driver script keeps the
// JSON type instead.
func Replay(session tracking.Session, rec *Record) error {
	if session == nil || !session.Running() {
		return errors.NewNoActiveSessionError("jsonsync.Replay")
	}

	for _, ch := range rec.Channels {
		for i := 0; i < ch.Points(); i++ {
			if err := session.LogMetricPoint(ch.Name, ch.X[i], ch.Y[i]); err != nil {
				return errors.NewUploadError(errors.UploadMetric, ch.Name, err)
			}
		}
	}
	for _, p := range rec.Properties {
		if err := session.SetProperty(p.Key, p.Value); err != nil {
			return errors.NewUploadError(errors.UploadProperty, p.Key, err)
		}
	}
	if len(rec.Tags) > 0 {
		if err := session.AppendTags(rec.Tags...); err != nil {
			return errors.NewUploadError(errors.UploadTags, "tags", err)
		}
	}
	return nil
}
