package render

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements end the current line when they open or close.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Table: true, atom.Pre: true, atom.Blockquote: true, atom.Hr: true,
}

// paragraphElements are followed by a blank line.
var paragraphElements = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Table: true, atom.Pre: true, atom.Blockquote: true, atom.Ul: true, atom.Ol: true,
}

// HTMLText reduces an HTML fragment to readable text. Block elements become
// line breaks, list items are bulleted, scripts and styles are dropped.
func HTMLText(s string) string {
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	if err != nil {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				b.WriteString(n.Data)
				return
			}
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if strings.HasPrefix(n.Data, " ") || strings.HasPrefix(n.Data, "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(t)
				if strings.HasSuffix(n.Data, " ") || strings.HasSuffix(n.Data, "\n") {
					b.WriteByte(' ')
				}
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			case atom.Pre:
				pre = true
			}
			if blockElements[n.DataAtom] {
				lineBreak(&b)
			}
			if n.DataAtom == atom.Li {
				b.WriteString("- ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			lineBreak(&b)
			if paragraphElements[n.DataAtom] {
				b.WriteByte('\n')
			}
		}
	}
	for _, n := range nodes {
		walk(n, false)
	}
	return tidy(b.String())
}

// MarkdownText reduces markdown to plain text, keeping paragraph breaks,
// list bullets and code block contents.
func MarkdownText(s string) string {
	source := []byte(s)
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		switch node := n.(type) {
		case *gmast.Text:
			if entering {
				b.Write(node.Segment.Value(source))
				switch {
				case node.HardLineBreak():
					b.WriteByte('\n')
				case node.SoftLineBreak():
					b.WriteByte(' ')
				}
			}
		case *gmast.String:
			if entering {
				b.Write(node.Value)
			}
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			if entering {
				lineBreak(&b)
				lines := n.Lines()
				for i := range lines.Len() {
					line := lines.At(i)
					b.Write(line.Value(source))
				}
				b.WriteByte('\n')
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.ListItem:
			if entering {
				lineBreak(&b)
				b.WriteString("- ")
			}
		case *gmast.TextBlock:
			if !entering {
				lineBreak(&b)
			}
		case *gmast.Paragraph, *gmast.Heading, *gmast.ThematicBreak:
			if !entering {
				lineBreak(&b)
				b.WriteByte('\n')
			}
		case *gmast.RawHTML, *gmast.HTMLBlock:
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return tidy(b.String())
}

// lineBreak ends the current line unless it is empty.
func lineBreak(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}

// tidy trims every line and collapses runs of blank lines to one.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
