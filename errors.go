package katex

import (
	"errors"
	"fmt"

	"github.com/joetifa2003/katex/engine"
)

// Sentinel errors, one per Kind. Every *Error matches the sentinel of its
// kind with errors.Is.
var (
	// ErrEngineInit indicates the js engine or the embedded scripts could not
	// be brought up. Not caused by user input; retrying will not help.
	ErrEngineInit = errors.New("failed to initialize js environment")

	// ErrConfiguration indicates an invalid option value.
	ErrConfiguration = errors.New("invalid render options")

	// ErrSerialization indicates the input or options could not be converted
	// into script values.
	ErrSerialization = errors.New("failed to convert value to js")

	// ErrScriptExecution indicates KaTeX rejected the input, typically
	// malformed LaTeX. The message is KaTeX's own diagnostic.
	ErrScriptExecution = errors.New("failed to execute js")

	// ErrDeserialization indicates the script returned something that is not
	// a valid UTF-8 string.
	ErrDeserialization = errors.New("js returned invalid result")

	// ErrInternal indicates an unexpected engine failure, such as a missing
	// entry point or a non-KaTeX exception.
	ErrInternal = errors.New("js engine failure")
)

// Kind classifies an Error.
type Kind int

const (
	KindEngineInit Kind = iota + 1
	KindConfiguration
	KindSerialization
	KindScriptExecution
	KindDeserialization
	KindInternal
)

func (k Kind) sentinel() error {
	switch k {
	case KindEngineInit:
		return ErrEngineInit
	case KindConfiguration:
		return ErrConfiguration
	case KindSerialization:
		return ErrSerialization
	case KindScriptExecution:
		return ErrScriptExecution
	case KindDeserialization:
		return ErrDeserialization
	default:
		return ErrInternal
	}
}

func (k Kind) String() string {
	switch k {
	case KindEngineInit:
		return "engine init"
	case KindConfiguration:
		return "configuration"
	case KindSerialization:
		return "serialization"
	case KindScriptExecution:
		return "script execution"
	case KindDeserialization:
		return "deserialization"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error type returned by this package.
type Error struct {
	Kind Kind

	// Field names the offending option for KindConfiguration.
	Field string

	// Message is the detail. For KindScriptExecution it is the script's
	// diagnostic verbatim, e.g. "KaTeX parse error: ...". Error() prefixes
	// it with the exception name.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (detail: %s)", e.Kind.sentinel(), e.Field, e.Message)
	}

	detail := e.Message
	var scriptErr *engine.ScriptError
	if e.Kind == KindScriptExecution && errors.As(e.Err, &scriptErr) && scriptErr.Name != "" {
		detail = scriptErr.Name + ": " + detail
	}
	return fmt.Sprintf("%s (detail: %s)", e.Kind.sentinel(), detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Retryable reports whether the same call could succeed with different input
// or options. Only configuration and script execution failures are caused by
// the caller.
func (e *Error) Retryable() bool {
	return e.Kind == KindScriptExecution || e.Kind == KindConfiguration
}

func configError(field, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Field: field, Message: fmt.Sprintf(format, args...)}
}

// classify maps an engine-level failure onto the error taxonomy.
func classify(err error) *Error {
	var (
		initErr   *engine.InitError
		scriptErr *engine.ScriptError
		own       *Error
	)

	switch {
	case errors.As(err, &own):
		return own
	case errors.As(err, &initErr):
		return &Error{Kind: KindEngineInit, Message: initErr.Error(), Err: err}
	case errors.Is(err, engine.ErrEncode):
		return &Error{Kind: KindSerialization, Message: err.Error(), Err: err}
	case errors.Is(err, engine.ErrNotString):
		return &Error{Kind: KindDeserialization, Message: err.Error(), Err: err}
	case errors.As(err, &scriptErr) && scriptErr.Name == parseErrorName:
		return &Error{Kind: KindScriptExecution, Message: scriptErr.Message, Err: err}
	default:
		return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
	}
}

// parseErrorName is the name KaTeX gives the exceptions it throws for
// malformed input.
const parseErrorName = "ParseError"
