package orchestrator

import (
    "errors"
    "fmt"
)

// ErrorKind groups run failures by the stage that raised them.
type ErrorKind string

const (
    KindInput       ErrorKind = "input"
    KindRender      ErrorKind = "render"
    KindRecognition ErrorKind = "recognition"
    KindAssembly    ErrorKind = "assembly"
)

// Error is a run failure. Input errors are recoverable by the caller
// (bad upload); every other kind aborts the run.
type Error struct {
    Kind    ErrorKind
    Page    int // 0 when not page specific
    Message string
    Err     error
}

func (e *Error) Error() string {
    msg := e.Message
    if e.Page > 0 {
        msg = fmt.Sprintf("page %d: %s", e.Page, msg)
    }
    if e.Err != nil {
        return fmt.Sprintf("%s error: %s: %v", e.Kind, msg, e.Err)
    }
    return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func inputError(msg string, err error) error { return &Error{Kind: KindInput, Message: msg, Err: err} }

func renderError(page int, err error) error {
    return &Error{Kind: KindRender, Page: page, Message: "failed to render page", Err: err}
}

// KindOf returns the kind of a run error, or "" when err is not one.
func KindOf(err error) ErrorKind {
    var e *Error
    if errors.As(err, &e) { return e.Kind }
    return ""
}

// IsInputError reports whether err was caused by unusable input.
func IsInputError(err error) bool { return KindOf(err) == KindInput }
