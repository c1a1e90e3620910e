package katex

import (
	"unicode/utf8"

	"github.com/peterbourgon/mergemap"
)

// Script option keys.
const (
	keyDisplayMode      = "displayMode"
	keyOutput           = "output"
	keyLeqno            = "leqno"
	keyFleqn            = "fleqn"
	keyThrowOnError     = "throwOnError"
	keyErrorColor       = "errorColor"
	keyMacros           = "macros"
	keyMinRuleThickness = "minRuleThickness"
	keyColorIsTextColor = "colorIsTextColor"
	keyMaxSize          = "maxSize"
	keyMaxExpand        = "maxExpand"
	keyTrust            = "trust"
	keyStrict           = "strict"
	keyGlobalGroup      = "globalGroup"
)

// htmlOnlyKeys only affect HTML layout and are dropped for MathML output.
var htmlOnlyKeys = []string{keyLeqno, keyFleqn, keyMinRuleThickness}

// encodeOptions converts o into the option object the script expects.
// Fields that were never set are omitted so the script applies its own
// defaults. Numbers are float64, as in the script.
func encodeOptions(o Options) map[string]any {
	m := make(map[string]any)

	if o.has(fieldDisplayMode) {
		m[keyDisplayMode] = o.displayMode
	}
	if o.has(fieldOutput) {
		m[keyOutput] = o.output.String()
	}
	if o.has(fieldLeqno) {
		m[keyLeqno] = o.leqno
	}
	if o.has(fieldFleqn) {
		m[keyFleqn] = o.fleqn
	}
	if o.has(fieldThrowOnError) {
		m[keyThrowOnError] = o.throwOnError
	}
	if o.has(fieldErrorColor) {
		m[keyErrorColor] = string(o.errorColor)
	}
	if len(o.macros) > 0 {
		macros := make(map[string]any, len(o.macros))
		for name, expansion := range o.macros {
			macros[name] = expansion
		}
		m[keyMacros] = macros
	}
	if o.has(fieldMinRuleThickness) {
		m[keyMinRuleThickness] = o.minRuleThickness
	}
	if o.has(fieldColorIsTextColor) {
		m[keyColorIsTextColor] = o.colorIsTextColor
	}
	if o.has(fieldMaxSize) {
		m[keyMaxSize] = o.maxSize
	}
	if o.has(fieldMaxExpand) {
		m[keyMaxExpand] = float64(o.maxExpand)
	}
	if o.has(fieldTrust) {
		m[keyTrust] = o.trust.encode()
	}
	if o.has(fieldStrict) {
		m[keyStrict] = o.strict.encode()
	}
	if o.has(fieldGlobalGroup) {
		m[keyGlobalGroup] = o.globalGroup
	}

	return m
}

// mergeOptions lays call over a copy of defaults. Values in call win; nested
// objects such as macros are merged key by key.
func mergeOptions(defaults, call map[string]any) map[string]any {
	if len(defaults) == 0 {
		return call
	}
	return mergemap.Merge(cloneTree(defaults), call)
}

// dropHTMLOnly removes HTML layout options when only MathML is produced and
// reports the keys it removed.
func dropHTMLOnly(m map[string]any) []string {
	if m[keyOutput] != MathML.String() {
		return nil
	}
	var dropped []string
	for _, k := range htmlOnlyKeys {
		if _, ok := m[k]; ok {
			delete(m, k)
			dropped = append(dropped, k)
		}
	}
	return dropped
}

func cloneTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case map[string]any:
			out[k] = cloneTree(v)
		case []any:
			out[k] = append([]any(nil), v...)
		default:
			out[k] = v
		}
	}
	return out
}

func encodeInput(input string) (string, error) {
	if !utf8.ValidString(input) {
		return "", &Error{Kind: KindSerialization, Message: "input is not valid UTF-8"}
	}
	return input, nil
}

func decodeResult(result string) (string, error) {
	if !utf8.ValidString(result) {
		return "", &Error{Kind: KindDeserialization, Message: "result is not valid UTF-8"}
	}
	return result, nil
}
