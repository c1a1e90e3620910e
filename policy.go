package katex

import (
	"maps"
	"slices"
	"strings"
)

// TrustRules allow trusted commands selectively. A command is trusted when
// it is listed in Commands (or Commands is empty) and its URL protocol is
// listed in Protocols (or Protocols is empty). A command without a URL, such
// as \htmlClass, is trusted only when Commands names it.
//
// Rules cross into the script as data and are turned into KaTeX's trust
// function there, so they work the same on every engine.
type TrustRules struct {
	// Commands such as `\url`, `\href`, `\htmlClass`.
	Commands []string
	// Protocols such as "https" or "mailto". Relative URLs report "_relative".
	Protocols []string
}

func (r TrustRules) validate() error {
	if len(r.Commands) == 0 && len(r.Protocols) == 0 {
		return configError("trust", "rules must name at least one command or protocol")
	}
	for _, c := range r.Commands {
		if !strings.HasPrefix(c, `\`) || len(c) < 2 {
			return configError("trust", "command %q must start with a backslash", c)
		}
	}
	for _, p := range r.Protocols {
		if p == "" || strings.ContainsAny(p, ":/") {
			return configError("trust", "protocol %q must be a bare scheme such as https", p)
		}
	}
	return nil
}

func (r TrustRules) clone() TrustRules {
	return TrustRules{Commands: slices.Clone(r.Commands), Protocols: slices.Clone(r.Protocols)}
}

// Allows evaluates the rules for a command and its URL protocol the way the
// script does.
func (r TrustRules) Allows(command, protocol string) bool {
	if len(r.Commands) > 0 && !slices.Contains(r.Commands, command) {
		return false
	}
	if protocol == "" {
		return len(r.Commands) > 0
	}
	if len(r.Protocols) == 0 {
		return true
	}
	return slices.Contains(r.Protocols, strings.ToLower(protocol))
}

// TrustPolicy is either a blanket boolean or a set of rules.
type TrustPolicy struct {
	all   bool
	rules TrustRules
}

// Rules returns the rules and whether the policy is rule based.
func (p TrustPolicy) Rules() (TrustRules, bool) {
	if len(p.rules.Commands) == 0 && len(p.rules.Protocols) == 0 {
		return TrustRules{}, false
	}
	return p.rules.clone(), true
}

// All reports the blanket setting of a non rule based policy.
func (p TrustPolicy) All() bool { return p.all }

func (p TrustPolicy) copy() TrustPolicy {
	return TrustPolicy{all: p.all, rules: p.rules.clone()}
}

func (p TrustPolicy) encode() any {
	rules, ok := p.Rules()
	if !ok {
		return p.all
	}
	return map[string]any{
		"commands":  stringsToAny(rules.Commands),
		"protocols": stringsToAny(rules.Protocols),
	}
}

// StrictLevel is KaTeX's reaction to LaTeX-incompatible input.
type StrictLevel string

const (
	StrictIgnore StrictLevel = "ignore"
	StrictWarn   StrictLevel = "warn"
	StrictError  StrictLevel = "error"
)

func (l StrictLevel) valid() bool {
	return l == StrictIgnore || l == StrictWarn || l == StrictError
}

// StrictPolicy is a single level, optionally refined per error code
// (e.g. "unicodeTextInMathMode").
type StrictPolicy struct {
	level StrictLevel
	codes map[string]StrictLevel
}

// Level returns the level for code.
func (p StrictPolicy) Level(code string) StrictLevel {
	if l, ok := p.codes[code]; ok {
		return l
	}
	if p.level == "" {
		return DefaultStrict
	}
	return p.level
}

func (p StrictPolicy) copy() StrictPolicy {
	return StrictPolicy{level: p.level, codes: maps.Clone(p.codes)}
}

func (p StrictPolicy) encode() any {
	if len(p.codes) == 0 {
		return string(p.Level(""))
	}
	codes := make(map[string]any, len(p.codes))
	for code, level := range p.codes {
		codes[code] = string(level)
	}
	return map[string]any{
		"default": string(p.Level("")),
		"codes":   codes,
	}
}

func stringsToAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
