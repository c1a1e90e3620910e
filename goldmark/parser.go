package katexmd

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var fence = []byte("$$")

type inlineParser struct{}

func (p *inlineParser) Trigger() []byte {
	return []byte{'$'}
}

// Parse reads $tex$ or $$tex$$ from the current line. Math may not start or
// end with a space, so prices like "$5 and $6" stay text. A backslash
// escapes the next byte, which keeps \$ inside math.
func (p *inlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()

	open := 1
	if len(line) > 1 && line[1] == '$' {
		open = 2
	}
	body := line[open:]
	if len(body) == 0 || util.IsSpace(body[0]) {
		return nil
	}

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '\n':
			return nil
		case '$':
			if open == 2 {
				if i+1 >= len(body) || body[i+1] != '$' {
					continue
				}
			} else if util.IsSpace(body[i-1]) {
				continue
			}
			if i == 0 {
				return nil
			}

			node := &InlineMath{
				Display: open == 2,
				TeX:     bytes.Clone(body[:i]),
			}
			block.Advance(open + i + open)
			return node
		}
	}
	return nil
}

type blockParser struct{}

func (b *blockParser) Trigger() []byte {
	return []byte{'$'}
}

// Open starts a block on a line holding only $$, provided a closing $$ line
// follows. An unmatched $$ stays paragraph text.
func (b *blockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], fence) || !util.IsBlank(line[pos+len(fence):]) {
		return nil, parser.NoChildren
	}
	if !hasClosingFence(reader) {
		return nil, parser.NoChildren
	}

	reader.Advance(segment.Len() - 1)
	return &BlockMath{}, parser.NoChildren
}

// hasClosingFence looks past the current line for a $$ line and leaves the
// reader where it was. Container markers such as "> " are skipped.
func hasClosingFence(reader text.Reader) bool {
	offset, segment := reader.Position()
	defer reader.SetPosition(offset, segment)

	reader.AdvanceLine()
	for {
		line, _ := reader.PeekLine()
		if line == nil {
			return false
		}
		if bytes.Equal(bytes.TrimLeft(bytes.TrimSpace(line), "> "), fence) {
			return true
		}
		reader.AdvanceLine()
	}
}

func (b *blockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}

	if bytes.Equal(bytes.TrimSpace(line), fence) {
		newline := 0
		if line[len(line)-1] == '\n' {
			newline = 1
		}
		reader.Advance(segment.Len() - newline)
		return parser.Close
	}

	node.Lines().Append(segment)
	reader.AdvanceToEOL()
	return parser.Continue | parser.NoChildren
}

func (b *blockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *blockParser) CanInterruptParagraph() bool {
	return true
}

func (b *blockParser) CanAcceptIndentedLine() bool {
	return false
}
