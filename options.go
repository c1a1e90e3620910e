package katex

import (
	"maps"
	"math"
	"regexp"
)

// OutputType selects the markup KaTeX produces.
type OutputType int

const (
	// HTMLAndMathML outputs HTML for visual rendering and includes MathML for
	// accessibility. This is KaTeX's default.
	HTMLAndMathML OutputType = iota
	// HTML outputs HTML only.
	HTML
	// MathML outputs MathML only.
	MathML
)

func (o OutputType) String() string {
	switch o {
	case HTML:
		return "html"
	case MathML:
		return "mathml"
	case HTMLAndMathML:
		return "htmlAndMathml"
	default:
		return ""
	}
}

// ParseOutputType parses the names KaTeX uses for its output option.
func ParseOutputType(s string) (OutputType, error) {
	for _, o := range []OutputType{HTML, MathML, HTMLAndMathML} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, configError("output", "unknown output type %q", s)
}

// Color is a CSS color accepted by KaTeX, e.g. "#cc0000".
type Color string

var colorRe = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[a-zA-Z]+)$`)

// Documented KaTeX defaults.
const (
	DefaultErrorColor Color = "#cc0000"
	DefaultMaxExpand        = 1000
	DefaultStrict           = StrictWarn

	// unlimitedExpand is what an unlimited maxExpand is sent as; the script
	// interface has no infinity.
	unlimitedExpand = math.MaxInt32
)

// field marks an explicitly set option.
type field uint16

const (
	fieldDisplayMode field = 1 << iota
	fieldOutput
	fieldLeqno
	fieldFleqn
	fieldThrowOnError
	fieldErrorColor
	fieldMinRuleThickness
	fieldColorIsTextColor
	fieldMaxSize
	fieldMaxExpand
	fieldTrust
	fieldStrict
	fieldGlobalGroup
)

// Options configures one render. The zero value, like the value returned by
// NewOptions without arguments, renders with KaTeX's defaults.
//
// Options is immutable: accessors return copies and the only way to change
// a value is to build a new one.
//
// See https://katex.org/docs/options.html.
type Options struct {
	set field

	displayMode      bool
	output           OutputType
	leqno            bool
	fleqn            bool
	throwOnError     bool
	errorColor       Color
	macros           map[string]string
	minRuleThickness float64
	colorIsTextColor bool
	maxSize          float64
	maxExpand        int
	trust            TrustPolicy
	strict           StrictPolicy
	globalGroup      bool
}

// Option sets one field of Options. It returns an error for values that can
// be rejected without running the script.
type Option func(o *Options) error

// NewOptions builds validated Options.
func NewOptions(options ...Option) (Options, error) {
	o := Options{}
	for _, option := range options {
		if err := option(&o); err != nil {
			return Options{}, err
		}
	}
	if o.macros != nil {
		o.macros = maps.Clone(o.macros)
	}
	return o, nil
}

// MustOptions is like NewOptions but panics on error.
func MustOptions(options ...Option) Options {
	o, err := NewOptions(options...)
	if err != nil {
		panic(err)
	}
	return o
}

// With returns a copy of o with options applied on top.
func (o Options) With(options ...Option) (Options, error) {
	n := o
	n.macros = maps.Clone(o.macros)
	for _, option := range options {
		if err := option(&n); err != nil {
			return Options{}, err
		}
	}
	return n, nil
}

func (o Options) has(f field) bool { return o.set&f != 0 }

// WithDisplayMode renders in display mode (a centered block) instead of inline.
// Default: false.
func WithDisplayMode(display bool) Option {
	return func(o *Options) error {
		o.displayMode = display
		o.set |= fieldDisplayMode
		return nil
	}
}

// WithOutput selects the markup to produce. Default: HTMLAndMathML.
func WithOutput(output OutputType) Option {
	return func(o *Options) error {
		if output.String() == "" {
			return configError("output", "unknown output type %d", int(output))
		}
		o.output = output
		o.set |= fieldOutput
		return nil
	}
}

// WithLeqno renders \tag on the left instead of the right. Default: false.
func WithLeqno(leqno bool) Option {
	return func(o *Options) error {
		o.leqno = leqno
		o.set |= fieldLeqno
		return nil
	}
}

// WithFleqn makes display math flush left. Default: false.
func WithFleqn(fleqn bool) Option {
	return func(o *Options) error {
		o.fleqn = fleqn
		o.set |= fieldFleqn
		return nil
	}
}

// WithThrowOnError controls whether invalid input fails the render with a
// KindScriptExecution error (true) or renders the source in ErrorColor
// (false). Default: true.
func WithThrowOnError(throw bool) Option {
	return func(o *Options) error {
		o.throwOnError = throw
		o.set |= fieldThrowOnError
		return nil
	}
}

// WithErrorColor sets the color of unsupported commands and, without
// throwOnError, of invalid input. Accepts "#rgb", "#rrggbb" or a CSS color
// name. Default: "#cc0000".
func WithErrorColor(color string) Option {
	return func(o *Options) error {
		if !colorRe.MatchString(color) {
			return configError("errorColor", "malformed color %q", color)
		}
		o.errorColor = Color(color)
		o.set |= fieldErrorColor
		return nil
	}
}

// WithMacro adds one macro, e.g. WithMacro(`\RR`, `\mathbb{R}`). A later
// definition of the same name replaces the earlier one.
func WithMacro(name, expansion string) Option {
	return func(o *Options) error {
		if name == "" {
			return configError("macros", "empty macro name")
		}
		if o.macros == nil {
			o.macros = make(map[string]string)
		}
		o.macros[name] = expansion
		return nil
	}
}

// WithMacros adds every macro in m.
func WithMacros(m map[string]string) Option {
	return func(o *Options) error {
		for name, expansion := range m {
			if err := WithMacro(name, expansion)(o); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithMinRuleThickness sets the minimum thickness of fraction lines and
// similar rules, in ems. Default: 0, meaning the font's own thickness.
func WithMinRuleThickness(ems float64) Option {
	return func(o *Options) error {
		if math.IsNaN(ems) || math.IsInf(ems, 0) || ems < 0 {
			return configError("minRuleThickness", "must be a finite number >= 0, got %v", ems)
		}
		o.minRuleThickness = ems
		o.set |= fieldMinRuleThickness
		return nil
	}
}

// WithColorIsTextColor makes \color behave like \textcolor, as in KaTeX
// before 0.8. Default: false.
func WithColorIsTextColor(enabled bool) Option {
	return func(o *Options) error {
		o.colorIsTextColor = enabled
		o.set |= fieldColorIsTextColor
		return nil
	}
}

// WithMaxSize caps user-specified sizes, in ems. Default: unlimited.
func WithMaxSize(ems float64) Option {
	return func(o *Options) error {
		if math.IsNaN(ems) || math.IsInf(ems, 0) || ems <= 0 {
			return configError("maxSize", "must be a finite number > 0, got %v", ems)
		}
		o.maxSize = ems
		o.set |= fieldMaxSize
		return nil
	}
}

// WithMaxExpand limits the number of macro expansions. 0 disables macros.
// Default: 1000.
func WithMaxExpand(n int) Option {
	return func(o *Options) error {
		if n < 0 {
			return configError("maxExpand", "must be >= 0, got %d", n)
		}
		o.maxExpand = min(n, unlimitedExpand)
		o.set |= fieldMaxExpand
		return nil
	}
}

// WithUnlimitedExpand lets the macro expander expand fully, as LaTeX does.
func WithUnlimitedExpand() Option {
	return func(o *Options) error {
		o.maxExpand = unlimitedExpand
		o.set |= fieldMaxExpand
		return nil
	}
}

// WithTrust trusts (true) or distrusts (false) every command that can
// generate links, classes, ids or other potentially unsafe markup.
// Default: false.
func WithTrust(trust bool) Option {
	return func(o *Options) error {
		o.trust = TrustPolicy{all: trust}
		o.set |= fieldTrust
		return nil
	}
}

// WithTrustRules trusts only what rules allow.
func WithTrustRules(rules TrustRules) Option {
	return func(o *Options) error {
		if err := rules.validate(); err != nil {
			return err
		}
		o.trust = TrustPolicy{rules: rules.clone()}
		o.set |= fieldTrust
		return nil
	}
}

// WithStrict sets how KaTeX reacts to LaTeX-incompatible input.
// Default: StrictWarn.
func WithStrict(level StrictLevel) Option {
	return func(o *Options) error {
		if !level.valid() {
			return configError("strict", "unknown strict level %q", string(level))
		}
		o.strict = StrictPolicy{level: level}
		o.set |= fieldStrict
		return nil
	}
}

// WithStrictRules sets a level per KaTeX error code, falling back to
// fallback for codes not listed.
func WithStrictRules(fallback StrictLevel, codes map[string]StrictLevel) Option {
	return func(o *Options) error {
		if !fallback.valid() {
			return configError("strict", "unknown strict level %q", string(fallback))
		}
		for code, level := range codes {
			if code == "" {
				return configError("strict", "empty error code")
			}
			if !level.valid() {
				return configError("strict", "unknown strict level %q for %s", string(level), code)
			}
		}
		o.strict = StrictPolicy{level: fallback, codes: maps.Clone(codes)}
		o.set |= fieldStrict
		return nil
	}
}

// WithGlobalGroup places KaTeX code in the global group, so definitions made
// with \def persist. Default: false.
func WithGlobalGroup(global bool) Option {
	return func(o *Options) error {
		o.globalGroup = global
		o.set |= fieldGlobalGroup
		return nil
	}
}

func (o Options) DisplayMode() bool { return o.displayMode }

func (o Options) Output() OutputType { return o.output }

func (o Options) Leqno() bool { return o.leqno }

func (o Options) Fleqn() bool { return o.fleqn }

func (o Options) ThrowOnError() bool {
	if !o.has(fieldThrowOnError) {
		return true
	}
	return o.throwOnError
}

func (o Options) ErrorColor() Color {
	if !o.has(fieldErrorColor) {
		return DefaultErrorColor
	}
	return o.errorColor
}

// Macros returns a copy of the macro table.
func (o Options) Macros() map[string]string {
	m := maps.Clone(o.macros)
	if m == nil {
		m = map[string]string{}
	}
	return m
}

func (o Options) MinRuleThickness() float64 { return o.minRuleThickness }

func (o Options) ColorIsTextColor() bool { return o.colorIsTextColor }

// MaxSize returns the size cap and whether one is set.
func (o Options) MaxSize() (float64, bool) {
	return o.maxSize, o.has(fieldMaxSize)
}

// MaxExpand returns the expansion limit and false when expansion is
// unlimited.
func (o Options) MaxExpand() (int, bool) {
	if !o.has(fieldMaxExpand) {
		return DefaultMaxExpand, true
	}
	return o.maxExpand, o.maxExpand != unlimitedExpand
}

func (o Options) Trust() TrustPolicy { return o.trust.copy() }

func (o Options) Strict() StrictPolicy {
	if !o.has(fieldStrict) {
		return StrictPolicy{level: DefaultStrict}
	}
	return o.strict.copy()
}

func (o Options) GlobalGroup() bool { return o.globalGroup }
