package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseScriptError(t *testing.T) {
	tests := []struct {
		in    string
		name  string
		msg   string
		stack string
	}{
		{
			in:    "ParseError: KaTeX parse error: Expected '}', got 'EOF' at end of input: \\frac{1\n    at parse (katex.js)",
			name:  "ParseError",
			msg:   "KaTeX parse error: Expected '}', got 'EOF' at end of input: \\frac{1",
			stack: "    at parse (katex.js)",
		},
		{
			in:   "ReferenceError: katex is not defined",
			name: "ReferenceError",
			msg:  "katex is not defined",
		},
		{
			in:   "exception in eval: TypeError: not a function",
			name: "TypeError",
			msg:  "not a function",
		},
		{
			in:   "Error: katex.renderToString is not defined",
			name: "Error",
			msg:  "katex.renderToString is not defined",
		},
		{
			in:  "something odd",
			msg: "something odd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseScriptError(tt.in)
			assert.Equal(t, tt.name, got.Name)
			assert.Equal(t, tt.msg, got.Message)
			assert.Equal(t, tt.stack, got.Stack)
		})
	}
}

func TestValidIdent(t *testing.T) {
	assert.True(t, ValidIdent("__katexRender"))
	assert.True(t, ValidIdent("$render2"))
	assert.False(t, ValidIdent(""))
	assert.False(t, ValidIdent("a.b"))
	assert.False(t, ValidIdent("f();evil"))
	assert.False(t, ValidIdent("2x"))
}

type closeCounter struct {
	evals  []string
	failOn string
	closed int
}

func (c *closeCounter) Name() string { return "counter" }
func (c *closeCounter) Eval(src Source) error {
	c.evals = append(c.evals, src.Name)
	if src.Name == c.failOn {
		return errors.New("SyntaxError: unexpected token")
	}
	return nil
}
func (c *closeCounter) Call(string, ...any) (string, error) { return "", nil }
func (c *closeCounter) Close() error                          { c.closed++; return nil }

func TestLoad(t *testing.T) {
	sources := []Source{{Name: "katex.js"}, {Name: "mhchem.js"}, {Name: "shim.js"}}

	t.Run("evaluates in order", func(t *testing.T) {
		c := &closeCounter{}
		got, err := Load(c, sources)
		assert.NoError(t, err)
		assert.Same(t, c, got)
		assert.Equal(t, []string{"katex.js", "mhchem.js", "shim.js"}, c.evals)
		assert.Zero(t, c.closed)
	})

	t.Run("failure discards engine", func(t *testing.T) {
		c := &closeCounter{failOn: "mhchem.js"}
		got, err := Load(c, sources)
		assert.Nil(t, got)
		assert.Equal(t, []string{"katex.js", "mhchem.js"}, c.evals)
		assert.Equal(t, 1, c.closed)

		var initErr *InitError
		assert.ErrorAs(t, err, &initErr)
		assert.Equal(t, "mhchem.js", initErr.Source)
		assert.Contains(t, err.Error(), "evaluating mhchem.js")
	})
}
