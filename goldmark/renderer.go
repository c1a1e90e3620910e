package katexmd

import (
	"bytes"
	"errors"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/joetifa2003/katex"
)

type nodeRenderer struct {
	renderer     Renderer
	inline       katex.Options
	display      katex.Options
	strictErrors bool
}

func newNodeRenderer(r Renderer, config config) *nodeRenderer {
	// WithDisplayMode never fails.
	inline, _ := config.options.With(katex.WithDisplayMode(false))
	display, _ := config.options.With(katex.WithDisplayMode(true))

	return &nodeRenderer{
		renderer:     r,
		inline:       inline,
		display:      display,
		strictErrors: config.strictErrors,
	}
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindInlineMath, r.renderInline)
	reg.Register(KindBlockMath, r.renderBlock)
}

func (r *nodeRenderer) renderInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	n := node.(*InlineMath)
	return ast.WalkSkipChildren, r.write(w, n.TeX, n.Display)
}

func (r *nodeRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	n := node.(*BlockMath)
	if err := r.write(w, bytes.TrimSpace(n.TeX(source)), true); err != nil {
		return ast.WalkStop, err
	}
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) write(w util.BufWriter, tex []byte, display bool) error {
	opts := r.inline
	if display {
		opts = r.display
	}

	html, err := r.renderer.RenderWithOptions(string(tex), opts)
	if err == nil {
		_, err = w.WriteString(html)
		return err
	}
	if r.strictErrors || !errors.Is(err, katex.ErrScriptExecution) {
		return err
	}

	msg := err.Error()
	var kerr *katex.Error
	if errors.As(err, &kerr) {
		msg = kerr.Message
	}

	_, _ = w.WriteString(`<code class="katex-error" title="`)
	_, _ = w.Write(util.EscapeHTML([]byte(msg)))
	_, _ = w.WriteString(`">`)
	_, _ = w.Write(util.EscapeHTML(tex))
	_, err = w.WriteString(`</code>`)
	return err
}
