package katexmd

import (
	"strconv"

	"github.com/yuin/goldmark/ast"
)

var (
	KindInlineMath = ast.NewNodeKind("InlineMath")
	KindBlockMath  = ast.NewNodeKind("BlockMath")
)

// InlineMath is math inside a paragraph: $...$, or $$...$$ for display
// style on one line.
type InlineMath struct {
	ast.BaseInline

	Display bool
	TeX     []byte
}

func (n *InlineMath) Kind() ast.NodeKind { return KindInlineMath }

func (n *InlineMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Display": strconv.FormatBool(n.Display),
		"TeX":     string(n.TeX),
	}, nil)
}

// BlockMath is a $$ fenced block. Its lines hold the TeX source.
type BlockMath struct {
	ast.BaseBlock
}

func (n *BlockMath) Kind() ast.NodeKind { return KindBlockMath }

func (n *BlockMath) IsRaw() bool { return true }

func (n *BlockMath) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// TeX returns the block's source without the fences.
func (n *BlockMath) TeX(source []byte) []byte {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(source)...)
	}
	return out
}
