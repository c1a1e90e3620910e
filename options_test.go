package katex_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joetifa2003/katex"
)

func TestOptionsDefaults(t *testing.T) {
	for name, o := range map[string]katex.Options{
		"zero":  {},
		"built": katex.MustOptions(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, o.DisplayMode())
			assert.Equal(t, katex.HTMLAndMathML, o.Output())
			assert.False(t, o.Leqno())
			assert.False(t, o.Fleqn())
			assert.True(t, o.ThrowOnError())
			assert.Equal(t, katex.Color("#cc0000"), o.ErrorColor())
			assert.Empty(t, o.Macros())
			assert.Zero(t, o.MinRuleThickness())
			assert.False(t, o.ColorIsTextColor())
			assert.False(t, o.GlobalGroup())

			_, limited := o.MaxSize()
			assert.False(t, limited)

			expand, limited := o.MaxExpand()
			assert.Equal(t, 1000, expand)
			assert.True(t, limited)

			_, rules := o.Trust().Rules()
			assert.False(t, rules)
			assert.False(t, o.Trust().All())

			assert.Equal(t, katex.StrictWarn, o.Strict().Level("unicodeTextInMathMode"))
		})
	}
}

func TestOptionsSetters(t *testing.T) {
	o, err := katex.NewOptions(
		katex.WithDisplayMode(true),
		katex.WithOutput(katex.MathML),
		katex.WithLeqno(true),
		katex.WithFleqn(true),
		katex.WithThrowOnError(false),
		katex.WithErrorColor("red"),
		katex.WithMacros(map[string]string{`\RR`: `\mathbb{R}`}),
		katex.WithMacro(`\RR`, `\mathbf{R}`),
		katex.WithMinRuleThickness(0.05),
		katex.WithColorIsTextColor(true),
		katex.WithMaxSize(10),
		katex.WithMaxExpand(50),
		katex.WithTrust(true),
		katex.WithStrict(katex.StrictIgnore),
		katex.WithGlobalGroup(true),
	)
	require.NoError(t, err)

	assert.True(t, o.DisplayMode())
	assert.Equal(t, katex.MathML, o.Output())
	assert.True(t, o.Leqno())
	assert.True(t, o.Fleqn())
	assert.False(t, o.ThrowOnError())
	assert.Equal(t, katex.Color("red"), o.ErrorColor())
	assert.Equal(t, map[string]string{`\RR`: `\mathbf{R}`}, o.Macros())
	assert.Equal(t, 0.05, o.MinRuleThickness())
	assert.True(t, o.ColorIsTextColor())
	assert.True(t, o.Trust().All())
	assert.Equal(t, katex.StrictIgnore, o.Strict().Level(""))
	assert.True(t, o.GlobalGroup())

	size, limited := o.MaxSize()
	assert.Equal(t, 10.0, size)
	assert.True(t, limited)

	expand, limited := o.MaxExpand()
	assert.Equal(t, 50, expand)
	assert.True(t, limited)

	u := katex.MustOptions(katex.WithUnlimitedExpand())
	_, limited = u.MaxExpand()
	assert.False(t, limited)
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name   string
		option katex.Option
		field  string
	}{
		{"zero max size", katex.WithMaxSize(0), "maxSize"},
		{"negative max size", katex.WithMaxSize(-1), "maxSize"},
		{"NaN max size", katex.WithMaxSize(math.NaN()), "maxSize"},
		{"infinite max size", katex.WithMaxSize(math.Inf(1)), "maxSize"},
		{"negative max expand", katex.WithMaxExpand(-1), "maxExpand"},
		{"negative rule thickness", katex.WithMinRuleThickness(-0.1), "minRuleThickness"},
		{"malformed color", katex.WithErrorColor("#12"), "errorColor"},
		{"color with junk", katex.WithErrorColor("red;background:url(x)"), "errorColor"},
		{"unknown output", katex.WithOutput(katex.OutputType(9)), "output"},
		{"empty macro name", katex.WithMacro("", "x"), "macros"},
		{"empty trust rules", katex.WithTrustRules(katex.TrustRules{}), "trust"},
		{"trust command without backslash", katex.WithTrustRules(katex.TrustRules{Commands: []string{"url"}}), "trust"},
		{"trust protocol with colon", katex.WithTrustRules(katex.TrustRules{Protocols: []string{"https:"}}), "trust"},
		{"unknown strict level", katex.WithStrict("loud"), "strict"},
		{"unknown strict fallback", katex.WithStrictRules("loud", nil), "strict"},
		{"unknown strict code level", katex.WithStrictRules(katex.StrictWarn, map[string]katex.StrictLevel{"x": "loud"}), "strict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := katex.NewOptions(tt.option)
			require.Error(t, err)
			assert.ErrorIs(t, err, katex.ErrConfiguration)

			var kerr *katex.Error
			require.ErrorAs(t, err, &kerr)
			assert.Equal(t, katex.KindConfiguration, kerr.Kind)
			assert.Equal(t, tt.field, kerr.Field)
		})
	}

	assert.Panics(t, func() { katex.MustOptions(katex.WithMaxSize(0)) })
}

func TestOptionsImmutable(t *testing.T) {
	macros := map[string]string{`\RR`: `\mathbb{R}`}
	o := katex.MustOptions(katex.WithMacros(macros))

	macros[`\CC`] = `\mathbb{C}`
	got := o.Macros()
	got[`\NN`] = `\mathbb{N}`
	assert.Equal(t, map[string]string{`\RR`: `\mathbb{R}`}, o.Macros())

	rules := katex.TrustRules{Commands: []string{`\url`}}
	o = katex.MustOptions(katex.WithTrustRules(rules))
	rules.Commands[0] = `\href`
	r, ok := o.Trust().Rules()
	require.True(t, ok)
	assert.Equal(t, []string{`\url`}, r.Commands)

	display, err := o.With(katex.WithDisplayMode(true), katex.WithMacro(`\ZZ`, `\mathbb{Z}`))
	require.NoError(t, err)
	assert.True(t, display.DisplayMode())
	assert.False(t, o.DisplayMode())
	assert.Empty(t, o.Macros())
	assert.Len(t, display.Macros(), 1)
}

func TestParseOutputType(t *testing.T) {
	for _, o := range []katex.OutputType{katex.HTML, katex.MathML, katex.HTMLAndMathML} {
		got, err := katex.ParseOutputType(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}

	_, err := katex.ParseOutputType("svg")
	assert.ErrorIs(t, err, katex.ErrConfiguration)
}

func TestTrustRulesAllows(t *testing.T) {
	rules := katex.TrustRules{Commands: []string{`\url`, `\href`}, Protocols: []string{"https", "_relative"}}

	assert.True(t, rules.Allows(`\url`, "https"))
	assert.True(t, rules.Allows(`\href`, "HTTPS"))
	assert.True(t, rules.Allows(`\href`, "_relative"))
	assert.True(t, rules.Allows(`\href`, ""))
	assert.False(t, rules.Allows(`\url`, "javascript"))
	assert.False(t, rules.Allows(`\htmlId`, "https"))

	protocolsOnly := katex.TrustRules{Protocols: []string{"https"}}
	assert.True(t, protocolsOnly.Allows(`\includegraphics`, "https"))
	for _, command := range []string{`\htmlStyle`, `\htmlClass`, `\htmlId`, `\htmlData`} {
		assert.False(t, protocolsOnly.Allows(command, ""), command)
	}

	classes := katex.TrustRules{Commands: []string{`\htmlClass`}}
	assert.True(t, classes.Allows(`\htmlClass`, ""))
	assert.False(t, classes.Allows(`\htmlStyle`, ""))
}

func TestStrictPolicyLevel(t *testing.T) {
	o := katex.MustOptions(katex.WithStrictRules(katex.StrictError, map[string]katex.StrictLevel{
		"unicodeTextInMathMode": katex.StrictIgnore,
	}))

	assert.Equal(t, katex.StrictIgnore, o.Strict().Level("unicodeTextInMathMode"))
	assert.Equal(t, katex.StrictError, o.Strict().Level("commentAtEnd"))
}
