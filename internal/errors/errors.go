package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindInference    Kind = "INFERENCE"
	KindInternal     Kind = "INTERNAL"
)

type Kind string

// ErrorInfo is the error value handlers return; it carries its own HTTP status.
type ErrorInfo struct {
	HTTPStatus int    `json:"-"`
	Kind       Kind   `json:"-"`
	Message    string `json:"error"`
	Cause      error  `json:"-"`
}

func (e ErrorInfo) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e ErrorInfo) Unwrap() error {
	return e.Cause
}

func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	info := ErrorInfo{}
	if errors.As(err, &info) {
		return info.Kind == kind
	}
	return false
}

func NewInvalidInputError(msg string) ErrorInfo {
	return ErrorInfo{HTTPStatus: http.StatusBadRequest, Kind: KindInvalidInput, Message: msg}
}

func NewNoImageError() ErrorInfo {
	return NewInvalidInputError("No image file")
}

func NewNoSelectedFileError() ErrorInfo {
	return NewInvalidInputError("No selected file")
}

func NewInvalidFileTypeError() ErrorInfo {
	return NewInvalidInputError("Invalid file type")
}

func NewFileTooLargeError(limit int64) ErrorInfo {
	return NewInvalidInputError(fmt.Sprintf("File too large (max %d bytes)", limit))
}

func NewImageTooLargeError(maxPixels int64) ErrorInfo {
	return NewInvalidInputError(fmt.Sprintf("Image too large (max %d pixels)", maxPixels))
}

// NewInferenceError reports a failure after the upload was accepted. The
// cause is only exposed to clients when verbose is set.
func NewInferenceError(err error, verbose bool) ErrorInfo {
	msg := "Error processing image"
	if verbose && err != nil {
		msg = msg + ": " + err.Error()
	}
	return ErrorInfo{HTTPStatus: http.StatusInternalServerError, Kind: KindInference, Message: msg, Cause: err}
}

func NewInternalError(err error) ErrorInfo {
	return ErrorInfo{HTTPStatus: http.StatusInternalServerError, Kind: KindInternal, Message: "Internal server error", Cause: err}
}
