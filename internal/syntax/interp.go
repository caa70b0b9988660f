package syntax

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pql/internal/ast"
)

// interpolated reads `f"..."` or `s"..."`. Holes are parsed as
// expressions with their absolute source offsets. `{{` and `}}` stand for
// literal braces.
func (p *parser) interpolated(prefix token) (ast.Expr, error) {
	str := p.next()
	bodyStart := str.start + 1
	body := p.src[bodyStart : str.end-1]

	var items []ast.InterpItem
	var text strings.Builder
	textStart := 0
	flush := func(end int) error {
		if text.Len() == 0 {
			return nil
		}
		s, err := unquote("\"" + text.String() + "\"")
		if err != nil {
			return p.errorf(str, "%v", err)
		}
		items = append(items, ast.InterpItem{
			Text: norm.NFC.String(s),
			Loc:  p.span(bodyStart+textStart, bodyStart+end),
		})
		text.Reset()
		return nil
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			if text.Len() == 0 {
				textStart = i
			}
			text.WriteByte(c)
			text.WriteByte(body[i+1])
			i++
		case (c == '{' || c == '}') && i+1 < len(body) && body[i+1] == c:
			if text.Len() == 0 {
				textStart = i
			}
			text.WriteString("\\")
			text.WriteByte(c)
			i++
		case c == '{':
			if err := flush(i); err != nil {
				return nil, err
			}
			closing := strings.IndexByte(body[i+1:], '}')
			if closing < 0 {
				return nil, &Error{
					Pos:      p.position(bodyStart + i),
					Message:  "unexpected end of input while parsing interpolated string",
					InString: true,
				}
			}
			holeStart := bodyStart + i + 1
			holeEnd := holeStart + closing
			item, err := p.hole(holeStart, holeEnd)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			i += closing + 1
		case c == '}':
			return nil, &Error{Pos: p.position(bodyStart + i), Message: "unmatched `}` in interpolated string; write `}}` for a literal brace", InString: true}
		default:
			if text.Len() == 0 {
				textStart = i
			}
			text.WriteByte(c)
		}
	}
	if err := flush(len(body)); err != nil {
		return nil, err
	}

	node := ast.Node{Loc: p.span(prefix.start, str.end)}
	if prefix.text == "s" {
		return &ast.SString{Node: node, Items: items}, nil
	}
	return &ast.FString{Node: node, Items: items}, nil
}

// hole parses the expression between the braces at [start, end). An empty
// hole is kept with a nil Expr so the resolver can report it.
func (p *parser) hole(start, end int) (ast.InterpItem, error) {
	item := ast.InterpItem{Hole: true, Loc: p.span(start-1, end+1)}
	if strings.TrimSpace(p.src[start:end]) == "" {
		return item, nil
	}
	sub, err := newParser(p.src, start, end)
	if err != nil {
		return item, err
	}
	sub.lines = p.lines
	e, err := sub.step()
	if err != nil {
		return item, err
	}
	if !sub.at(eofToken) {
		return item, sub.errorf(sub.peek(), "unexpected %s in interpolation", describe(sub.peek()))
	}
	item.Expr = e
	return item, nil
}
