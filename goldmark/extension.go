// Package katexmd is a goldmark extension that renders $...$ and $$ blocks
// with KaTeX.
//
//	r, _ := katex.New()
//	md := goldmark.New(goldmark.WithExtensions(katexmd.New(r)))
package katexmd

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/joetifa2003/katex"
)

// Renderer turns TeX into markup. *katex.Renderer satisfies it.
type Renderer interface {
	RenderWithOptions(input string, opts katex.Options) (string, error)
}

type config struct {
	options      katex.Options
	strictErrors bool
}

type Option func(config *config)

// WithOptions sets the options every formula is rendered with. Display mode
// is decided by the markup and overrides the one in opts.
func WithOptions(opts katex.Options) Option {
	return func(config *config) {
		config.options = opts
	}
}

// WithStrictErrors fails the conversion on malformed TeX instead of writing
// the source in a katex-error element.
func WithStrictErrors() Option {
	return func(config *config) {
		config.strictErrors = true
	}
}

type extender struct {
	renderer Renderer
	config   config
}

// New returns the extension. Formulas are rendered with r while the document
// is written.
func New(r Renderer, options ...Option) goldmark.Extender {
	e := &extender{renderer: r}
	for _, option := range options {
		option(&e.config)
	}
	return e
}

func (e *extender) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&blockParser{}, 701)),
		parser.WithInlineParsers(util.Prioritized(&inlineParser{}, 150)),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(newNodeRenderer(e.renderer, e.config), 500)),
	)
}
