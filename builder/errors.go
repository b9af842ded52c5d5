package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/esm-dev/dnt/internal/compiler"
)

// ErrorKind classifies a build failure.
type ErrorKind string

const (
	InvalidConfiguration           ErrorKind = "InvalidConfiguration"
	IncompatibleFeatureCombination ErrorKind = "IncompatibleFeatureCombination"
	TypeCheckFailure               ErrorKind = "TypeCheckFailure"
	ResolutionFailure              ErrorKind = "ResolutionFailure"
	IOFailure                      ErrorKind = "IOFailure"
)

// BuildError is the error returned by Build.
type BuildError struct {
	Kind        ErrorKind
	Message     string
	Specifier   string
	Importer    string
	File        string
	Position    *compiler.Position
	Diagnostics []compiler.Diagnostic
	Err         error
}

func (e *BuildError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Specifier != "" {
		fmt.Fprintf(&sb, " %q", e.Specifier)
		if e.Importer != "" {
			sb.WriteString(" imported by ")
			sb.WriteString(e.Importer)
		}
	}
	if e.File != "" {
		sb.WriteString(" (")
		sb.WriteString(e.File)
		if e.Position != nil {
			sb.WriteByte(':')
			sb.WriteString(e.Position.String())
		}
		sb.WriteByte(')')
	}
	for _, d := range e.Diagnostics {
		sb.WriteString("\n  ")
		sb.WriteString(d.String())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a BuildError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Kind == kind
}

func configError(format string, args ...any) *BuildError {
	return &BuildError{Kind: InvalidConfiguration, Message: fmt.Sprintf(format, args...)}
}

func ioError(message string, err error) *BuildError {
	return &BuildError{Kind: IOFailure, Message: message, Err: err}
}

func resolutionError(message string, specifier string, importer string, err error) *BuildError {
	return &BuildError{Kind: ResolutionFailure, Message: message, Specifier: specifier, Importer: importer, Err: err}
}
