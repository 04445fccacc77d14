// Package errors はscigo-neptune全体のエラーハンドリングと警告システムを提供します。
// トラッキングセッション、設定検証、入力JSON、外部コマンドそれぞれに対応する
// 構造化されたエラー型を定義し、cockroachdb/errorsでスタックトレースを付与します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("scigo-neptune warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// CleanupWarningなど、処理を止めない問題の扱い方を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// CleanupWarning は一時ファイル・一時ディレクトリの削除に失敗した場合の警告です。
// 元の処理結果を上書きしないため、エラーではなく警告として報告されます。
type CleanupWarning struct {
	Path string
	Err  error
}

func (w *CleanupWarning) Error() string {
	return fmt.Sprintf("failed to remove temporary path %s: %v", w.Path, w.Err)
}

func (w *CleanupWarning) Unwrap() error {
	return w.Err
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *CleanupWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", w.Path).
		AnErr("cause", w.Err).
		Str("type", "CleanupWarning")
}

// NewCleanupWarning は新しいCleanupWarningを作成します。
func NewCleanupWarning(path string, err error) *CleanupWarning {
	return &CleanupWarning{Path: path, Err: err}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NoActiveSessionError は実行中のトラッキングセッションが存在しない状態で
// コールバックを作成しようとした場合のエラーです。
type NoActiveSessionError struct {
	Op string
}

func (e *NoActiveSessionError) Error() string {
	return fmt.Sprintf("neptune: %s: no currently running tracking session; create a session before training starts", e.Op)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NoActiveSessionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("type", "NoActiveSessionError")
}

// NewNoActiveSessionError は新しいNoActiveSessionErrorを作成し、スタックトレースを付与します。
func NewNoActiveSessionError(op string) error {
	return errors.WithStack(&NoActiveSessionError{Op: op})
}

// InvalidConfigError は設定オプションの型・値の検証に失敗した場合のエラーです。
// どのオプションが不正だったか、実際の値の型は何だったかを保持します。
type InvalidConfigError struct {
	Option   string
	Expected string
	Got      string // 実際の値の型名
	Value    interface{}
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("neptune: %s must be %s, got %s instead (value: %v). Check %s parameter.",
		e.Option, e.Expected, e.Got, e.Value, e.Option)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidConfigError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("option", e.Option).
		Str("expected", e.Expected).
		Str("got", e.Got).
		Interface("value", e.Value).
		Str("type", "InvalidConfigError")
}

// NewInvalidConfigError は新しいInvalidConfigErrorを作成し、スタックトレースを付与します。
// Gotには値の動的な型名が入ります。
func NewInvalidConfigError(option, expected string, value interface{}) error {
	return errors.WithStack(&InvalidConfigError{
		Option:   option,
		Expected: expected,
		Got:      fmt.Sprintf("%T", value),
		Value:    value,
	})
}

// MalformedInputError は入力JSONが不正、もしくは必須キーが欠けている場合のエラーです。
type MalformedInputError struct {
	Path   string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("neptune: malformed experiment document: %s", e.Reason)
	}
	return fmt.Sprintf("neptune: malformed experiment document %s: %s", e.Path, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MalformedInputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("reason", e.Reason).
		Str("type", "MalformedInputError")
}

// NewMalformedInputError は新しいMalformedInputErrorを作成し、スタックトレースを付与します。
func NewMalformedInputError(path, reason string) error {
	return errors.WithStack(&MalformedInputError{Path: path, Reason: reason})
}

// UploadKind はアップロード対象の種類です。
type UploadKind string

const (
	UploadMetric   UploadKind = "metric"
	UploadArtifact UploadKind = "artifact"
	UploadImage    UploadKind = "image"
	UploadProperty UploadKind = "property"
	UploadTags     UploadKind = "tags"
)

// UploadError はトラッキングセッションへの送信に失敗した場合のエラーです。
// リトライは行わず、呼び出し元（学習ループ）へそのまま伝播します。
type UploadError struct {
	Kind UploadKind
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("neptune: failed to log %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UploadError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kind", string(e.Kind)).
		Str("name", e.Name).
		AnErr("cause", e.Err).
		Str("type", "UploadError")
}

// NewUploadError は新しいUploadErrorを作成し、スタックトレースを付与します。
func NewUploadError(kind UploadKind, name string, err error) error {
	return errors.WithStack(&UploadError{Kind: kind, Name: name, Err: err})
}

// RenderError は特徴量重要度チャートや木の描画に失敗した場合のエラーです。
// Indexは木の描画の場合のみ意味を持ち、それ以外は-1です。
type RenderError struct {
	Target string
	Index  int
	Err    error
}

func (e *RenderError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("neptune: failed to render %s %d: %v", e.Target, e.Index, e.Err)
	}
	return fmt.Sprintf("neptune: failed to render %s: %v", e.Target, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *RenderError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("target", e.Target).
		Int("index", e.Index).
		AnErr("cause", e.Err).
		Str("type", "RenderError")
}

// NewRenderError は新しいRenderErrorを作成し、スタックトレースを付与します。
func NewRenderError(target string, index int, err error) error {
	return errors.WithStack(&RenderError{Target: target, Index: index, Err: err})
}

// SubprocessError は外部同期コマンドが失敗した場合のエラーです。
// ExitCodeはプロセスが起動できなかった場合は-1になります。
type SubprocessError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *SubprocessError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("neptune: %s exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("neptune: %s could not be started: %v", e.Command, e.Err)
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SubprocessError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("command", e.Command).
		Int("exit_code", e.ExitCode).
		AnErr("cause", e.Err).
		Str("type", "SubprocessError")
}

// NewSubprocessError は新しいSubprocessErrorを作成し、スタックトレースを付与します。
func NewSubprocessError(command string, exitCode int, err error) error {
	return errors.WithStack(&SubprocessError{Command: command, ExitCode: exitCode, Err: err})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("neptune: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("neptune: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrTreeIndexOutOfRange はモデルに存在しない木のインデックスが指定された場合のエラーです。
	ErrTreeIndexOutOfRange = New("tree index out of range")
)
