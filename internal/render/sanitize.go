package render

import (
	"html/template"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// formulaTags are the elements formula blocks are built from
var formulaTags = map[atom.Atom]bool{
	atom.Div: true, atom.P: true, atom.Span: true, atom.Br: true, atom.Hr: true,
	atom.Strong: true, atom.Em: true, atom.B: true, atom.I: true, atom.Code: true,
	atom.Sub: true, atom.Sup: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tr: true, atom.Th: true, atom.Td: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
}

var voidTags = map[atom.Atom]bool{atom.Br: true, atom.Hr: true}

// elements dropped together with everything inside them
var droppedContent = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Object: true,
	atom.Noscript: true, atom.Template: true, atom.Svg: true, atom.Math: true,
	atom.Textarea: true, atom.Title: true,
}

// sanitizeFormula keeps only layout tags with their class attribute, and
// text. Unknown tags are unwrapped. Unclosed tags are closed at the end so
// the block stays balanced.
func sanitizeFormula(markup string) template.HTML {
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		out  strings.Builder
		open []atom.Atom
		skip int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			for i := len(open) - 1; i >= 0; i-- {
				out.WriteString("</" + open[i].String() + ">")
			}
			return template.HTML(strings.TrimSpace(out.String()))

		case html.TextToken:
			if skip == 0 {
				out.WriteString(html.EscapeString(string(z.Text())))
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if droppedContent[tok.DataAtom] {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if skip > 0 || !formulaTags[tok.DataAtom] {
				continue
			}
			out.WriteString("<" + tok.Data)
			for _, a := range tok.Attr {
				if a.Namespace == "" && a.Key == "class" {
					out.WriteString(` class="` + html.EscapeString(a.Val) + `"`)
				}
			}
			out.WriteString(">")
			if tt == html.StartTagToken && !voidTags[tok.DataAtom] {
				open = append(open, tok.DataAtom)
			}

		case html.EndTagToken:
			tok := z.Token()
			if droppedContent[tok.DataAtom] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if skip > 0 {
				continue
			}
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] != tok.DataAtom {
					continue
				}
				for j := len(open) - 1; j >= i; j-- {
					out.WriteString("</" + open[j].String() + ">")
				}
				open = open[:i]
				break
			}
		}
	}
}
