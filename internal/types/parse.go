package types

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse reads the textual type syntax used in declaration tables:
//
//	int | text | relation | transform | tuple | scalar | anytype
//	[T]                      array
//	{a = T, T, ..}           tuple (".." marks an open tuple)
//	func T1 T2 -> R          function
//	T || U                   union
//	(T)                      grouping
func Parse(src string) (*Type, error) {
	p := &typeParser{toks: tokenizeType(src)}
	t, err := p.union()
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", src, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("type %q: unexpected %q", src, p.peek())
	}
	return t, nil
}

// MustParse is Parse for static tables; it panics on malformed input.
func MustParse(src string) *Type {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

var namedTypes = map[string]*Type{
	"int":       Int,
	"float":     Float,
	"bool":      Bool,
	"text":      Text,
	"date":      Date,
	"time":      Time,
	"timestamp": Timestamp,
	"interval":  Interval,
	"range":     RangeType,
	"null":      Null,
	"anytype":   Unknown,
	"tuple":     AnyTuple,
	"relation":  Relation,
	"transform": Transform,
	"scalar":    Scalar,
}

type typeParser struct {
	toks []string
	pos  int
}

func (p *typeParser) done() bool { return p.pos >= len(p.toks) }

func (p *typeParser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *typeParser) expect(tok string) error {
	if got := p.next(); got != tok {
		if got == "" {
			return fmt.Errorf("expected %q, found end of input", tok)
		}
		return fmt.Errorf("expected %q, found %q", tok, got)
	}
	return nil
}

func (p *typeParser) union() (*Type, error) {
	first, err := p.single()
	if err != nil {
		return nil, err
	}
	members := []*Type{first}
	for p.peek() == "||" {
		p.next()
		m, err := p.single()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return Union(members...), nil
}

func (p *typeParser) single() (*Type, error) {
	switch tok := p.next(); tok {
	case "":
		return nil, fmt.Errorf("unexpected end of input")
	case "(":
		t, err := p.union()
		if err != nil {
			return nil, err
		}
		return t, p.expect(")")
	case "[":
		elem, err := p.union()
		if err != nil {
			return nil, err
		}
		return Array(elem), p.expect("]")
	case "{":
		return p.tuple()
	case "func":
		var params []*Type
		for p.peek() != "->" {
			if p.done() {
				return nil, fmt.Errorf("expected \"->\" in function type")
			}
			param, err := p.single()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
		p.next()
		ret, err := p.single()
		if err != nil {
			return nil, err
		}
		return Func(append(params, ret)...), nil
	default:
		if t, ok := namedTypes[tok]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown type name %q", tok)
	}
}

func (p *typeParser) tuple() (*Type, error) {
	t := &Type{Kind: KindTuple}
	for p.peek() != "}" {
		if p.done() {
			return nil, fmt.Errorf("unterminated tuple type")
		}
		if p.peek() == ".." {
			p.next()
			t.Open = true
		} else {
			var name string
			if p.pos+1 < len(p.toks) && p.toks[p.pos+1] == "=" {
				name = p.next()
				p.next()
			}
			ft, err := p.union()
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, Field{Name: name, Type: ft})
		}
		if p.peek() == "," {
			p.next()
		}
	}
	p.next()
	if len(t.Fields) == 0 {
		return AnyTuple, nil
	}
	return t, nil
}

func tokenizeType(src string) []string {
	var toks []string
	r := []rune(src)
	for i := 0; i < len(r); {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case strings.HasPrefix(string(r[i:]), "||"), strings.HasPrefix(string(r[i:]), "->"), strings.HasPrefix(string(r[i:]), ".."):
			toks = append(toks, string(r[i:i+2]))
			i += 2
		case strings.ContainsRune("[]{}(),=", c):
			toks = append(toks, string(c))
			i++
		default:
			j := i
			for j < len(r) && (unicode.IsLetter(r[j]) || unicode.IsDigit(r[j]) || r[j] == '_') {
				j++
			}
			if j == i {
				j = i + 1
			}
			toks = append(toks, string(r[i:j]))
			i = j
		}
	}
	return toks
}
