package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewInvalidConfigError(t *testing.T) {
	tests := []struct {
		name    string
		option  string
		want    string
		value   interface{}
		wantGot string
		wantMsg string
	}{
		{
			name:    "string instead of bool",
			option:  "log_model",
			want:    "bool",
			value:   "yes",
			wantGot: "string",
			wantMsg: "neptune: log_model must be bool, got string instead (value: yes). Check log_model parameter.",
		},
		{
			name:    "float instead of int",
			option:  "max_num_features",
			want:    "int",
			value:   2.5,
			wantGot: "float64",
			wantMsg: "neptune: max_num_features must be int, got float64 instead (value: 2.5). Check max_num_features parameter.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInvalidConfigError(tt.option, tt.want, tt.value)

			// 基本的なエラーメッセージの確認
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var cfgErr *InvalidConfigError
			if !As(err, &cfgErr) {
				t.Fatal("Error should be castable to *InvalidConfigError")
			}
			if cfgErr.Got != tt.wantGot {
				t.Errorf("Got = %v, want %v", cfgErr.Got, tt.wantGot)
			}
		})
	}
}

func TestNewNoActiveSessionError(t *testing.T) {
	err := NewNoActiveSessionError("monitor.New")

	if !strings.Contains(err.Error(), "no currently running tracking session") {
		t.Errorf("unexpected message: %v", err)
	}

	var sessErr *NoActiveSessionError
	if !As(err, &sessErr) {
		t.Fatal("Error should be castable to *NoActiveSessionError")
	}
	if sessErr.Op != "monitor.New" {
		t.Errorf("Op = %v, want monitor.New", sessErr.Op)
	}
}

func TestNewMalformedInputError(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{
			name:    "with path",
			path:    "exp.json",
			wantMsg: "neptune: malformed experiment document exp.json: invalid JSON",
		},
		{
			name:    "without path",
			path:    "",
			wantMsg: "neptune: malformed experiment document: invalid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMalformedInputError(tt.path, "invalid JSON")
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestUploadErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewUploadError(UploadArtifact, "bst.model", cause)

	if !Is(err, cause) {
		t.Error("UploadError should unwrap to its cause")
	}

	want := `neptune: failed to log artifact "bst.model": connection reset`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestRenderErrorMessage(t *testing.T) {
	cause := fmt.Errorf("boom")

	tree := NewRenderError("tree", 3, cause)
	if tree.Error() != "neptune: failed to render tree 3: boom" {
		t.Errorf("unexpected tree message: %v", tree)
	}

	chart := NewRenderError("feature importance", -1, cause)
	if chart.Error() != "neptune: failed to render feature importance: boom" {
		t.Errorf("unexpected chart message: %v", chart)
	}

	var renderErr *RenderError
	if !As(tree, &renderErr) || renderErr.Index != 3 {
		t.Error("Error should be castable to *RenderError with index 3")
	}
}

func TestSubprocessErrorMessage(t *testing.T) {
	exited := NewSubprocessError("neptune run", 2, nil)
	if exited.Error() != "neptune: neptune run exited with code 2" {
		t.Errorf("unexpected message: %v", exited)
	}

	notStarted := NewSubprocessError("neptune run", -1, fmt.Errorf("executable file not found"))
	if !strings.Contains(notStarted.Error(), "could not be started") {
		t.Errorf("unexpected message: %v", notStarted)
	}
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) {
		got = append(got, w)
	})
	defer SetWarningHandler(func(error) {})

	Warn(NewCleanupWarning("/tmp/x", fmt.Errorf("busy")))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	var cw *CleanupWarning
	if !As(got[0], &cw) {
		t.Fatalf("expected CleanupWarning, got %T", got[0])
	}
	if cw.Path != "/tmp/x" {
		t.Errorf("Path = %v, want /tmp/x", cw.Path)
	}
}

func TestWarnPrefersZerolog(t *testing.T) {
	handlerCalled := false
	zerologCalled := false
	SetWarningHandler(func(error) { handlerCalled = true })
	SetZerologWarnFunc(func(error) { zerologCalled = true })
	defer func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(error) {})
	}()

	Warn(New("warn"))

	if !zerologCalled {
		t.Error("zerolog warn func should be used when set")
	}
	if handlerCalled {
		t.Error("fallback handler should not be used when zerolog is set")
	}
}
