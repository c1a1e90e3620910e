package katex_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joetifa2003/katex"
	"github.com/joetifa2003/katex/engine"
	"github.com/joetifa2003/katex/engine/enginetest"
)

func newRenderer(t *testing.T, options ...katex.RendererOption) *katex.Renderer {
	t.Helper()

	options = append([]katex.RendererOption{
		katex.WithScript(enginetest.KatexScript().Code),
	}, options...)

	r, err := katex.New(options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func kindOf(t *testing.T, err error) katex.Kind {
	t.Helper()

	var kerr *katex.Error
	require.ErrorAs(t, err, &kerr)
	return kerr.Kind
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRender(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(`E=mc^2`)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<span class="katex">`))
	assert.Contains(t, out, `class="katex-mathml"`)
	assert.Contains(t, out, `class="katex-html"`)
	assert.Contains(t, out, `<span class="msupsub sup"><span class="mord">2</span></span>`)
	assert.NotContains(t, out, "katex-display")
}

func TestRenderDisplayMode(t *testing.T) {
	r := newRenderer(t)

	inline, err := r.RenderWithOptions(`x+y`, katex.MustOptions(katex.WithDisplayMode(false)))
	require.NoError(t, err)
	display, err := r.RenderWithOptions(`x+y`, katex.MustOptions(katex.WithDisplayMode(true)))
	require.NoError(t, err)

	assert.NotContains(t, inline, "katex-display")
	assert.True(t, strings.HasPrefix(display, `<span class="katex-display">`))
	assert.Contains(t, display, `display="block"`)
}

func TestRenderMalformed(t *testing.T) {
	r := newRenderer(t)

	for _, input := range []string{`\frac{1}{`, `\`, `\undefinedmacro`, `x}`} {
		t.Run(input, func(t *testing.T) {
			_, err := r.Render(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, katex.ErrScriptExecution)

			var kerr *katex.Error
			require.ErrorAs(t, err, &kerr)
			assert.Equal(t, katex.KindScriptExecution, kerr.Kind)
			assert.True(t, strings.HasPrefix(kerr.Message, "KaTeX parse error: "), kerr.Message)
			assert.True(t, kerr.Retryable())
		})
	}

	_, err := r.Render(`\frac{1}{`)
	assert.EqualError(t, err,
		`failed to execute js (detail: ParseError: KaTeX parse error: Expected '}', got 'EOF' at end of input: \frac{1}{)`)

	// a failed render leaves the engine usable
	_, err = r.Render(`x`)
	assert.NoError(t, err)
}

func TestRenderUnicode(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(`x = é + 𝔸`)
	require.NoError(t, err)
	assert.Contains(t, out, "é")
	assert.Contains(t, out, "𝔸")

	_, err = r.Render("x\xff")
	assert.ErrorIs(t, err, katex.ErrSerialization)
	assert.Equal(t, katex.KindSerialization, kindOf(t, err))
}

func TestRenderOutput(t *testing.T) {
	r := newRenderer(t)

	html, err := r.RenderWithOptions(`x`, katex.MustOptions(katex.WithOutput(katex.HTML)))
	require.NoError(t, err)
	assert.Contains(t, html, "katex-html")
	assert.NotContains(t, html, "katex-mathml")

	mathml, err := r.RenderWithOptions(`x`, katex.MustOptions(katex.WithOutput(katex.MathML)))
	require.NoError(t, err)
	assert.Contains(t, mathml, `<math xmlns="http://www.w3.org/1998/Math/MathML"`)
	assert.NotContains(t, mathml, "katex-html")
}

func TestRenderEquationLayout(t *testing.T) {
	r := newRenderer(t)

	out, err := r.RenderWithOptions(`x`, katex.MustOptions(
		katex.WithDisplayMode(true),
		katex.WithLeqno(true),
		katex.WithFleqn(true),
	))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<span class="katex-display leqno fleqn">`))

	// html only layout options are ignored, not rejected, for mathml output
	out, err = r.RenderWithOptions(`x`, katex.MustOptions(
		katex.WithDisplayMode(true),
		katex.WithOutput(katex.MathML),
		katex.WithLeqno(true),
		katex.WithMinRuleThickness(0.1),
	))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<span class="katex-display">`))
}

func TestRenderThrowOnError(t *testing.T) {
	r := newRenderer(t)

	out, err := r.RenderWithOptions(`\frac{1}{`, katex.MustOptions(
		katex.WithThrowOnError(false),
		katex.WithErrorColor("#00f"),
	))
	require.NoError(t, err)
	assert.Contains(t, out, `class="katex-error"`)
	assert.Contains(t, out, `style="color:#00f"`)
}

func TestRenderMacros(t *testing.T) {
	r := newRenderer(t)

	out, err := r.RenderWithOptions(`\RR`, katex.MustOptions(katex.WithMacro(`\RR`, `\mathbb{R}`)))
	require.NoError(t, err)
	assert.Contains(t, out, `<span class="mord mathbb"><span class="mord mathnormal">R</span></span>`)

	_, err = r.Render(`\RR`)
	assert.ErrorIs(t, err, katex.ErrScriptExecution, "macros do not leak between renders")

	_, err = r.RenderWithOptions(`\loop`, katex.MustOptions(
		katex.WithMacro(`\loop`, `\loop`),
		katex.WithMaxExpand(5),
	))
	require.ErrorIs(t, err, katex.ErrScriptExecution)
	assert.Contains(t, err.Error(), "Too many expansions")
}

func TestRenderTrust(t *testing.T) {
	r := newRenderer(t)
	const input = `\url{https://katex.org}`

	out, err := r.Render(input)
	require.NoError(t, err)
	assert.NotContains(t, out, "<a href=")
	assert.Contains(t, out, `style="color:#cc0000"`)

	out, err = r.RenderWithOptions(input, katex.MustOptions(katex.WithTrust(true)))
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://katex.org">`)

	rules := katex.MustOptions(katex.WithTrustRules(katex.TrustRules{
		Commands:  []string{`\url`},
		Protocols: []string{"https"},
	}))

	out, err = r.RenderWithOptions(input, rules)
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://katex.org">`)

	out, err = r.RenderWithOptions(`\url{http://katex.org}`, rules)
	require.NoError(t, err)
	assert.NotContains(t, out, "<a href=")
}

func TestRenderTrustCommandsWithoutURL(t *testing.T) {
	r := newRenderer(t)
	const input = `\htmlClass{big}{x}`

	httpsOnly := katex.MustOptions(katex.WithTrustRules(katex.TrustRules{Protocols: []string{"https"}}))
	out, err := r.RenderWithOptions(input, httpsOnly)
	require.NoError(t, err)
	assert.NotContains(t, out, "enclosing big")

	out, err = r.RenderWithOptions(`\url{https://katex.org}`, httpsOnly)
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://katex.org">`)

	classes := katex.MustOptions(katex.WithTrustRules(katex.TrustRules{Commands: []string{`\htmlClass`}}))
	out, err = r.RenderWithOptions(input, classes)
	require.NoError(t, err)
	assert.Contains(t, out, `<span class="enclosing big">`)
}

func TestRenderStrict(t *testing.T) {
	r := newRenderer(t)

	_, err := r.RenderWithOptions(`é`, katex.MustOptions(katex.WithStrict(katex.StrictIgnore)))
	assert.NoError(t, err)

	_, err = r.RenderWithOptions(`é`, katex.MustOptions(katex.WithStrict(katex.StrictError)))
	assert.ErrorIs(t, err, katex.ErrScriptExecution)

	_, err = r.RenderWithOptions(`é`, katex.MustOptions(katex.WithStrictRules(katex.StrictIgnore, map[string]katex.StrictLevel{
		"unicodeTextInMathMode": katex.StrictError,
	})))
	require.ErrorIs(t, err, katex.ErrScriptExecution)
	assert.Contains(t, err.Error(), "[unicodeTextInMathMode]")

	_, err = r.RenderWithOptions(`é`, katex.MustOptions(katex.WithStrictRules(katex.StrictError, map[string]katex.StrictLevel{
		"unicodeTextInMathMode": katex.StrictIgnore,
	})))
	assert.NoError(t, err)
}

func TestRendererDefaults(t *testing.T) {
	r := newRenderer(t, katex.WithDefaults(katex.MustOptions(
		katex.WithDisplayMode(true),
		katex.WithMacro(`\RR`, `\mathbb{R}`),
	)))

	out, err := r.Render(`\RR`)
	require.NoError(t, err)
	assert.Contains(t, out, "katex-display")

	out, err = r.RenderWithOptions(`\RR \to \CC`, katex.MustOptions(
		katex.WithDisplayMode(false),
		katex.WithMacro(`\CC`, `\mathbb{C}`),
		katex.WithMacro(`\to`, `\rightarrow`),
		katex.WithMacro(`\rightarrow`, `-`),
	))
	require.NoError(t, err)
	assert.NotContains(t, out, "katex-display")
	assert.Contains(t, out, `<span class="mord mathbb"><span class="mord mathnormal">R</span></span>`)
	assert.Contains(t, out, `<span class="mord mathbb"><span class="mord mathnormal">C</span></span>`)

	// the defaults survive a call that overrode them
	out, err = r.Render(`x`)
	require.NoError(t, err)
	assert.Contains(t, out, "katex-display")
}

func TestRendererExtension(t *testing.T) {
	mhchem := enginetest.MhchemScript()
	r := newRenderer(t, katex.WithExtension(mhchem.Name, mhchem.Code))

	out, err := r.Render(`\ce{H2O}`)
	require.NoError(t, err)
	assert.Contains(t, out, `<span class="mord mathrm">`)
}

func TestRendererInitFailure(t *testing.T) {
	r, err := katex.New(katex.WithScript(`var notKatex = true;`))
	require.NoError(t, err, "engines start lazily")
	defer r.Close()

	_, err = r.Render(`x`)
	require.ErrorIs(t, err, katex.ErrEngineInit)
	assert.Contains(t, err.Error(), "katex.renderToString is not defined")

	var kerr *katex.Error
	require.ErrorAs(t, err, &kerr)
	assert.False(t, kerr.Retryable())

	var initErr *engine.InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "katex-bootstrap.js", initErr.Source)

	_, err = r.Render(`x`)
	assert.ErrorIs(t, err, katex.ErrEngineInit, "init failures are not retried")
}

func TestRendererStartsEngineOnce(t *testing.T) {
	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := newRenderer(t, katex.WithLogger(logger), katex.WithPoolSize(1))
	assert.NotContains(t, logs.String(), "starting js engine")

	for range 3 {
		_, err := r.Render(`x`)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, strings.Count(logs.String(), "msg=\"js engine started\""))
	assert.Equal(t, 3, strings.Count(logs.String(), "msg=rendered"))
}

func TestRendererConcurrent(t *testing.T) {
	r := newRenderer(t, katex.WithPoolSize(4))

	want, err := r.Render(`\frac{a}{b}`)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 8 {
				got, err := r.Render(`\frac{a}{b}`)
				if err != nil {
					errs <- err
					return
				}
				if got != want {
					errs <- errors.New("unexpected output: " + got)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestRendererClose(t *testing.T) {
	r, err := katex.New(katex.WithScript(enginetest.KatexScript().Code))
	require.NoError(t, err)

	_, err = r.Render(`x`)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Render(`x`)
	assert.ErrorIs(t, err, katex.ErrInternal)
	assert.ErrorIs(t, err, engine.ErrClosed)
}

func TestNewOptionErrors(t *testing.T) {
	_, err := katex.New(katex.WithPoolSize(0))
	assert.ErrorIs(t, err, katex.ErrConfiguration)

	_, err = katex.New(katex.WithScriptFS(os.DirFS(t.TempDir()), "katex.min.js"))
	assert.ErrorIs(t, err, katex.ErrEngineInit)
}

func TestEmbeddedPayload(t *testing.T) {
	if _, err := os.Stat("assets/katex.min.js"); err != nil {
		_, err := katex.Render(`x`)
		assert.ErrorIs(t, err, katex.ErrEngineInit)
		t.Skip("katex.min.js is not vendored, run go generate")
	}

	out, err := katex.Render(`E=mc^2`)
	require.NoError(t, err)
	assert.Contains(t, out, `<span class="katex">`)

	out, err = katex.RenderWithOptions(`x`, katex.MustOptions(katex.WithDisplayMode(true)))
	require.NoError(t, err)
	assert.Contains(t, out, `class="katex-display"`)

	_, err = katex.Render(`\frac{1}{`)
	require.ErrorIs(t, err, katex.ErrScriptExecution)
	assert.Contains(t, err.Error(), "ParseError: KaTeX parse error:")
}
