// Command katex renders TeX, or Markdown with $ math, to HTML.
//
//	katex 'E = mc^2'
//	echo '\frac{a}{b}' | katex --display
//	katex --markdown < notes.md > notes.html
package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"
	"github.com/yuin/goldmark"

	"github.com/joetifa2003/katex"
	katexmd "github.com/joetifa2003/katex/goldmark"
)

type CLI struct {
	Expression []string `arg:"" optional:"" help:"TeX to render. Read from stdin when omitted."`

	Display  bool   `short:"d" help:"Render in display mode."`
	Output   string `enum:",html,mathml,htmlAndMathml" default:"" help:"Markup to produce (${enum})."`
	Options  string `short:"o" type:"existingfile" help:"YAML file with render options."`
	Mhchem   bool   `help:"Load the mhchem extension (\\ce, \\pu)."`
	Script   string `type:"existingfile" help:"KaTeX build to run instead of the embedded one."`
	Markdown bool   `short:"m" help:"Treat the input as Markdown and render every formula in it."`

	LogLevel   string `default:"warn" enum:"debug,info,warn,error" help:"Minimum log level (${enum})."`
	Profile    string `enum:",cpu,mem,block,mutex,trace" default:"" help:"Write a profile of the run."`
	ProfileDir string `type:"path" default:"." help:"Directory for profile output."`
}

var profileModes = map[string]func(*profile.Profile){
	"cpu":   profile.CPUProfile,
	"mem":   profile.MemProfile,
	"block": profile.BlockProfile,
	"mutex": profile.MutexProfile,
	"trace": profile.TraceProfile,
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("katex"),
		kong.Description("Render LaTeX math to HTML with KaTeX ("+katex.Backend+" engine)."),
		kong.UsageOnError(),
	)

	var level slog.Level
	kctx.FatalIfErrorf(level.UnmarshalText([]byte(cli.LogLevel)))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := cli.run(logger, os.Stdin, os.Stdout)
	kctx.FatalIfErrorf(err)
}

func (c *CLI) run(logger *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	if mode, ok := profileModes[c.Profile]; ok {
		defer profile.Start(mode, profile.ProfilePath(c.ProfileDir), profile.Quiet).Stop()
	}

	opts, err := c.renderOptions()
	if err != nil {
		return err
	}

	rendererOptions := []katex.RendererOption{
		katex.WithLogger(logger),
		katex.WithMhchem(c.Mhchem),
	}
	if c.Script != "" {
		rendererOptions = append(rendererOptions,
			katex.WithScriptFS(os.DirFS(filepath.Dir(c.Script)), filepath.Base(c.Script)),
		)
	}

	r, err := katex.New(rendererOptions...)
	if err != nil {
		return err
	}
	defer r.Close()

	input, err := c.input(stdin)
	if err != nil {
		return err
	}

	if c.Markdown {
		md := goldmark.New(goldmark.WithExtensions(katexmd.New(r, katexmd.WithOptions(opts))))
		return md.Convert([]byte(input), stdout)
	}

	html, err := r.RenderWithOptions(strings.TrimSpace(input), opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, html)
	return err
}

func (c *CLI) input(stdin io.Reader) (string, error) {
	if len(c.Expression) > 0 {
		return strings.Join(c.Expression, " "), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, stdin); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return buf.String(), nil
}

// renderOptions layers the command line flags over the options file.
func (c *CLI) renderOptions() (katex.Options, error) {
	var options []katex.Option

	if c.Options != "" {
		data, err := os.ReadFile(c.Options)
		if err != nil {
			return katex.Options{}, fmt.Errorf("reading options: %w", err)
		}
		fileOptions, err := parseOptionsFile(data)
		if err != nil {
			return katex.Options{}, fmt.Errorf("%s: %w", c.Options, err)
		}
		options = append(options, fileOptions...)
	}

	if c.Display {
		options = append(options, katex.WithDisplayMode(true))
	}
	if c.Output != "" {
		output, err := katex.ParseOutputType(c.Output)
		if err != nil {
			return katex.Options{}, err
		}
		options = append(options, katex.WithOutput(output))
	}

	return katex.NewOptions(options...)
}
