// Package log defines standard attribute keys for tracking operations.
//
// Keys follow a hierarchical naming convention ("session.id", "export.tree")
// so log lines from the exporter and the sync command can be filtered the
// same way.

package log

// Session and component context.
const (
	// SessionIDKey identifies the tracking session a record belongs to.
	SessionIDKey = "session.id"

	// ComponentKey identifies which package is emitting the record.
	// Examples: "monitor", "jsonsync", "boost"
	ComponentKey = "component"

	// OperationKey names the step being performed.
	// Examples: "log_metric", "log_artifact", "render_tree"
	OperationKey = "operation"
)

// Training loop context.
const (
	// IterationKey is the 0-based boosting iteration.
	IterationKey = "training.iteration"

	// EndIterationKey is the total number of boosting iterations.
	EndIterationKey = "training.end_iteration"

	// FoldKey is the cross-validation fold index.
	FoldKey = "training.fold"

	// MetricsKey is the number of evaluation results reported in an iteration.
	MetricsKey = "training.metrics"
)

// Export context.
const (
	// ArtifactKey names an uploaded artifact.
	ArtifactKey = "export.artifact"

	// ImageChannelKey names the channel an image was logged to.
	ImageChannelKey = "export.image_channel"

	// ImageNameKey names an uploaded image.
	ImageNameKey = "export.image_name"

	// TreeIndexKey is the index of a rendered tree.
	TreeIndexKey = "export.tree"

	// TempDirKey is the scoped temporary directory of an export.
	TempDirKey = "export.temp_dir"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Sync command context.
const (
	// ProjectKey is the target project of a sync.
	ProjectKey = "sync.project"

	// FilePathKey is the experiment JSON document being synced.
	FilePathKey = "sync.filepath"

	// ScriptKey is the generated driver script.
	ScriptKey = "sync.script"

	// ConfigKey is the generated configuration file.
	ConfigKey = "sync.config"

	// CommandKey is the external command line being executed.
	CommandKey = "sync.command"

	// ExitCodeKey is the exit code of the external command.
	ExitCodeKey = "sync.exit_code"
)

// Error context.
const (
	// ErrorTypeKey categorizes the error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by Logger.Error when the error carries one.
	StacktraceKey = "error.stacktrace"
)
