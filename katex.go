// Package katex renders LaTeX math into HTML and MathML by running KaTeX
// inside an embedded JavaScript engine.
//
// The engine is chosen at build time: goja by default, fastschema/qjs with
// the katex_qjs tag, cgo QuickJS with katex_quickjs, and the host's own
// engine under js/wasm. Backend names the one linked in.
//
//	html, err := katex.Render(`E = mc^2`)
//
//	opts := katex.MustOptions(katex.WithDisplayMode(true), katex.WithMacro(`\RR`, `\mathbb{R}`))
//	html, err = katex.RenderWithOptions(`f\colon \RR \to \RR`, opts)
package katex

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/joetifa2003/katex/engine"
)

type Logger = engine.Logger

// Renderer owns the js engines KaTeX runs in. It is safe for concurrent use.
type Renderer struct {
	logger   Logger
	sources  []engine.Source
	defaults map[string]any
	poolSize int

	host     engine.Host
	hostLock sync.Mutex
	closed   bool
}

type rendererConfig struct {
	logger Logger

	script     *engine.Source
	extensions []engine.Source
	mhchem     bool

	defaults Options
	poolSize int
}

type RendererOption func(config *rendererConfig) error

func WithLogger(logger Logger) RendererOption {
	return func(config *rendererConfig) error {
		config.logger = logger
		return nil
	}
}

// WithScript replaces the embedded KaTeX build with code.
func WithScript(code string) RendererOption {
	return func(config *rendererConfig) error {
		config.script = &engine.Source{Name: "katex.js", Code: code}
		return nil
	}
}

// WithScriptFS replaces the embedded KaTeX build with the file at path.
func WithScriptFS(fsys fs.FS, path string) RendererOption {
	return func(config *rendererConfig) error {
		src, err := readSource(fsys, path)
		if err != nil {
			return err
		}
		config.script = &src
		return nil
	}
}

// WithExtension evaluates code after KaTeX, for contrib scripts that
// register macros or commands on the katex global.
func WithExtension(name, code string) RendererOption {
	return func(config *rendererConfig) error {
		config.extensions = append(config.extensions, engine.Source{Name: name, Code: code})
		return nil
	}
}

// WithMhchem loads the embedded mhchem extension (\ce and \pu) when it was
// vendored.
func WithMhchem(enabled bool) RendererOption {
	return func(config *rendererConfig) error {
		config.mhchem = enabled
		return nil
	}
}

// WithDefaults sets options applied to every render. Options passed to
// RenderWithOptions take precedence; macros from both are kept.
func WithDefaults(defaults Options) RendererOption {
	return func(config *rendererConfig) error {
		config.defaults = defaults
		return nil
	}
}

// WithPoolSize caps the number of live engines for backends that keep more
// than one. Default: runtime.GOMAXPROCS(0).
func WithPoolSize(size int) RendererOption {
	return func(config *rendererConfig) error {
		if size < 1 {
			return configError("poolSize", "must be >= 1, got %d", size)
		}
		config.poolSize = size
		return nil
	}
}

// New creates a Renderer. No engine is started until the first render.
func New(options ...RendererOption) (*Renderer, error) {
	config := &rendererConfig{}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, err
		}
	}

	if config.logger == nil {
		config.logger = slog.New(slog.DiscardHandler)
	}

	script := config.script
	if script == nil {
		src, err := embeddedKatex()
		if err != nil {
			return nil, err
		}
		script = &src
	}
	sources := []engine.Source{*script}

	if config.mhchem {
		src, ok, err := embeddedMhchem()
		if err != nil {
			return nil, err
		}
		if ok {
			sources = append(sources, src)
		} else {
			config.logger.LogAttrs(context.Background(), slog.LevelWarn, "mhchem requested but not vendored",
				slog.String("path", mhchemAsset),
			)
		}
	}
	sources = append(sources, config.extensions...)
	sources = append(sources, bootstrapSource())

	r := &Renderer{
		logger:   config.logger,
		sources:  sources,
		defaults: encodeOptions(config.defaults),
		poolSize: config.poolSize,
	}

	return r, nil
}

func (r *Renderer) getHost() (engine.Host, error) {
	r.hostLock.Lock()
	defer r.hostLock.Unlock()

	if r.closed {
		return nil, engine.ErrClosed
	}
	if r.host == nil {
		r.host = newHost(r.sources,
			engine.WithLogger(r.logger),
			engine.WithSize(r.poolSize),
		)
	}
	return r.host, nil
}

// Render renders input inline with the renderer's default options.
func (r *Renderer) Render(input string) (string, error) {
	return r.RenderWithOptions(input, Options{})
}

// RenderWithOptions renders input with opts laid over the renderer's
// defaults. Every failure is a *Error; malformed LaTeX is reported with
// KindScriptExecution and KaTeX's own message.
func (r *Renderer) RenderWithOptions(input string, opts Options) (string, error) {
	ctx := context.Background()

	in, err := encodeInput(input)
	if err != nil {
		return "", err
	}

	encoded := mergeOptions(r.defaults, encodeOptions(opts))
	if dropped := dropHTMLOnly(encoded); len(dropped) > 0 {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "ignoring html only options for mathml output",
			slog.Any("options", dropped),
		)
	}
	displayMode, _ := encoded[keyDisplayMode].(bool)

	host, err := r.getHost()
	if err != nil {
		return "", classify(err)
	}

	t1 := time.Now()
	result, err := host.Call(entryPoint, in, encoded, displayMode)
	if err != nil {
		kerr := classify(err)
		r.logger.LogAttrs(ctx, slog.LevelDebug, "render failed",
			slog.String("kind", kerr.Kind.String()),
			slog.String("error", kerr.Message),
		)
		return "", kerr
	}

	out, err := decodeResult(result)
	if err != nil {
		return "", err
	}

	r.logger.LogAttrs(ctx, slog.LevelDebug, "rendered",
		slog.Int("input", len(input)),
		slog.Bool("display", displayMode),
		slog.String("dur", time.Since(t1).String()),
	)
	return out, nil
}

// Close releases every engine. Renders after Close fail with KindInternal.
func (r *Renderer) Close() error {
	r.hostLock.Lock()
	defer r.hostLock.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.host == nil {
		return nil
	}
	if err := r.host.Close(); err != nil {
		return fmt.Errorf("closing %s engine: %w", Backend, err)
	}
	return nil
}

var (
	defaultRenderer     *Renderer
	defaultRendererErr  error
	defaultRendererOnce sync.Once
)

// Default returns the process-wide renderer used by Render and
// RenderWithOptions. It runs the embedded KaTeX build with mhchem and lives
// until the process exits.
func Default() (*Renderer, error) {
	defaultRendererOnce.Do(func() {
		defaultRenderer, defaultRendererErr = New(WithMhchem(true))
	})
	return defaultRenderer, defaultRendererErr
}

// Render renders input inline with KaTeX's defaults.
func Render(input string) (string, error) {
	return RenderWithOptions(input, Options{})
}

// RenderWithOptions renders input with opts on the default renderer.
func RenderWithOptions(input string, opts Options) (string, error) {
	r, err := Default()
	if err != nil {
		return "", err
	}
	return r.RenderWithOptions(input, opts)
}
