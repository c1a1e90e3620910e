package engine

import (
	"regexp"
	"strings"
)

// ScriptError is an exception thrown by script code during a call.
type ScriptError struct {
	// Name is the constructor name of the thrown value, e.g. "ParseError".
	// Empty when the thrown value carried no name.
	Name    string
	Message string
	Stack   string
}

func (e *ScriptError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}

var errorHeadRe = regexp.MustCompile(`((?:[A-Za-z_$][\w$]*)?Error): (.*)$`)

// ParseScriptError builds a ScriptError from the textual form engines use
// when they only expose exceptions as strings ("Name: message" on the first
// line, stack frames after it).
func ParseScriptError(s string) *ScriptError {
	head, stack, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if m := errorHeadRe.FindStringSubmatch(head); m != nil {
		return &ScriptError{Name: m[1], Message: m[2], Stack: stack}
	}
	return &ScriptError{Message: head, Stack: stack}
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

// ValidIdent reports whether fn can be spliced into script text as a global
// function reference.
func ValidIdent(fn string) bool {
	return identRe.MatchString(fn)
}
