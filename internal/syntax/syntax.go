// Package syntax reads query text into an ast.Module.
//
// It covers the surface used by fixtures, the acceptance scenarios and the
// command line: let statements, the query header, pipelines written with
// `|` or one transform per line, calls by juxtaposition with named
// arguments, lambdas, tuples, arrays, ranges, f- and s-strings, case, dates,
// intervals and query params. Tokens come from a parsly cursor; the
// grammar is a precedence-climbing parser over them.
package syntax

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pql/internal/ast"
)

// Error is a syntax error at a source position.
type Error struct {
	Pos     ast.Position
	Message string

	// InString is set for errors inside an f-string or s-string.
	InString bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Parse reads a whole query source.
func Parse(src string) (*ast.Module, error) {
	p, err := newParser(src, 0, len(src))
	if err != nil {
		return nil, err
	}
	return p.module()
}

// ParseExpr reads a single expression (no statements).
func ParseExpr(src string) (ast.Expr, error) {
	p, err := newParser(src, 0, len(src))
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	e, err := p.pipeline(true)
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if !p.at(eofToken) {
		return nil, p.errorf(p.peek(), "unexpected %s", describe(p.peek()))
	}
	return e, nil
}

type parser struct {
	src   string
	lines []int // offsets of line starts
	toks  []token
	pos   int
}

func newParser(src string, start, end int) (*parser, error) {
	p := &parser{src: src, lines: lineStarts(src)}
	toks, err := lex([]byte(src[start:end]), start)
	if err != nil {
		if le, ok := err.(*lexError); ok {
			return nil, &Error{Pos: p.position(le.offset), Message: fmt.Sprintf("unexpected character %q", le.char)}
		}
		return nil, err
	}
	p.toks = toks
	return p, nil
}

func lineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (p *parser) position(offset int) ast.Position {
	line := sort.Search(len(p.lines), func(i int) bool { return p.lines[i] > offset }) - 1
	col := utf8.RuneCountInString(p.src[p.lines[line]:offset]) + 1
	return ast.Position{Offset: offset, Line: line + 1, Column: col}
}

func (p *parser) span(start, end int) ast.Span {
	return ast.Span{Start: p.position(start), End: p.position(end)}
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &Error{Pos: p.position(t.start), Message: fmt.Sprintf(format, args...)}
}

func describe(t token) string {
	switch t.kind {
	case eofToken:
		return "end of input"
	case newlineToken:
		return "new line"
	default:
		return fmt.Sprintf("`%s`", t.text)
	}
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != eofToken {
		p.pos++
	}
	return t
}

func (p *parser) at(kind int) bool { return p.peek().kind == kind }

func (p *parser) atOp(op string) bool { return p.peek().is(opToken, op) }

func (p *parser) atKeyword(word string) bool { return p.peek().is(identToken, word) }

func (p *parser) expectOp(op string) (token, error) {
	t := p.peek()
	if !t.is(opToken, op) {
		return t, p.errorf(t, "expected `%s`, found %s", op, describe(t))
	}
	return p.next(), nil
}

func (p *parser) skipNewlines() {
	for p.at(newlineToken) {
		p.next()
	}
}

// prev is the last consumed token.
func (p *parser) prev() token {
	if p.pos == 0 {
		return p.toks[0]
	}
	return p.toks[p.pos-1]
}

func (p *parser) module() (*ast.Module, error) {
	mod := &ast.Module{}
	p.skipNewlines()
	for !p.at(eofToken) {
		var (
			stmt ast.Stmt
			err  error
		)
		switch {
		case p.atKeyword("prql"):
			stmt, err = p.header()
		case p.atKeyword("let"):
			stmt, err = p.let()
		default:
			stmt, err = p.main()
		}
		if err != nil {
			return nil, err
		}
		mod.Stmts = append(mod.Stmts, stmt)
		p.skipNewlines()
	}
	return mod, nil
}

func (p *parser) endOfStatement() error {
	if t := p.peek(); t.kind != newlineToken && t.kind != eofToken {
		return p.errorf(t, "unexpected %s", describe(t))
	}
	return nil
}

func (p *parser) header() (ast.Stmt, error) {
	kw := p.next()
	q := &ast.QueryDef{}
	for p.at(identToken) && p.peekAt(1).is(opToken, ":") {
		name := p.next().text
		p.next()
		value, err := p.term()
		if err != nil {
			return nil, err
		}
		text := ""
		switch v := value.(type) {
		case *ast.Ident:
			text = v.Name()
		case *ast.Literal:
			text = v.Value
		default:
			return nil, p.errorf(p.prev(), "expected a name or string for `%s`", name)
		}
		switch name {
		case "target":
			q.Target = text
		case "version":
			q.Version = text
		default:
			return nil, p.errorf(p.prev(), "unknown query setting `%s`", name)
		}
	}
	q.Loc = p.span(kw.start, p.prev().end)
	return q, p.endOfStatement()
}

func (p *parser) let() (ast.Stmt, error) {
	kw := p.next()
	name := p.peek()
	if name.kind != identToken {
		return nil, p.errorf(name, "expected a name after `let`, found %s", describe(name))
	}
	p.next()
	if _, err := p.expectOp("="); err != nil {
		return nil, err
	}
	value, err := p.pipeline(false)
	if err != nil {
		return nil, err
	}
	stmt := &ast.Let{Name: identText(name.text), Value: value, Loc: p.span(kw.start, p.prev().end)}
	return stmt, p.endOfStatement()
}

// main collects consecutive lines up to the next statement keyword; each
// line is a pipeline step.
func (p *parser) main() (ast.Stmt, error) {
	start := p.peek().start
	var steps []ast.Expr
	for {
		step, err := p.step()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
		if p.atOp("|") {
			p.next()
			p.skipNewlines()
			continue
		}
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
		p.skipNewlines()
		if p.at(eofToken) || p.atKeyword("let") || p.atKeyword("prql") {
			break
		}
	}
	sp := p.span(start, steps[len(steps)-1].Span().End.Offset)
	value := steps[0]
	if len(steps) > 1 {
		value = &ast.Pipeline{Node: ast.Node{Loc: sp}, Exprs: steps}
	}
	return &ast.Main{Value: value, Loc: sp}, nil
}

// pipeline reads steps joined by `|`; inside parentheses a new line also
// separates steps.
func (p *parser) pipeline(multiline bool) (ast.Expr, error) {
	first, err := p.step()
	if err != nil {
		return nil, err
	}
	steps := []ast.Expr{first}
	for {
		if p.atOp("|") {
			p.next()
			p.skipNewlines()
		} else if multiline && p.at(newlineToken) {
			p.skipNewlines()
			if p.atOp(")") || p.at(eofToken) {
				break
			}
		} else {
			break
		}
		step, err := p.step()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	if len(steps) == 1 {
		return first, nil
	}
	sp := first.Span().Join(steps[len(steps)-1].Span())
	return &ast.Pipeline{Node: ast.Node{Loc: sp}, Exprs: steps}, nil
}

// step is one pipeline element: an optionally aliased lambda, call or
// operator expression.
func (p *parser) step() (ast.Expr, error) {
	alias := p.alias()
	var (
		e   ast.Expr
		err error
	)
	if p.lambdaAhead() {
		e, err = p.lambda()
	} else {
		e, err = p.call()
	}
	if err != nil {
		return nil, err
	}
	if alias != "" {
		ast.SetAlias(e, alias)
	}
	return e, nil
}

// alias consumes `name =` when present.
func (p *parser) alias() string {
	if p.at(identToken) && p.peekAt(1).is(opToken, "=") {
		name := p.next().text
		p.next()
		return identText(name)
	}
	return ""
}

func (p *parser) lambdaAhead() bool {
	i := 0
	for {
		t := p.peekAt(i)
		if t.kind != identToken {
			break
		}
		i++
		if p.peekAt(i).is(opToken, ":") {
			i += 2
		}
	}
	return i > 0 && p.peekAt(i).is(opToken, "->")
}

func (p *parser) lambda() (ast.Expr, error) {
	start := p.peek().start
	fn := &ast.Func{}
	for !p.atOp("->") {
		name := p.next()
		param := ast.Param{Name: identText(name.text), Loc: p.span(name.start, name.end)}
		if p.atOp(":") {
			p.next()
			def, err := p.term()
			if err != nil {
				return nil, err
			}
			param.Named = true
			param.Default = def
			param.Loc = p.span(name.start, p.prev().end)
		}
		fn.Params = append(fn.Params, param)
	}
	p.next()
	body, err := p.step()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	fn.Loc = p.span(start, p.prev().end)
	return fn, nil
}

// startsTerm reports whether t can begin a call argument.
func startsTerm(t token) bool {
	switch t.kind {
	case identToken, numberToken, stringToken, dateToken, paramToken:
		return true
	case opToken:
		return t.text == "(" || t.text == "{" || t.text == "["
	}
	return false
}

// call reads `f a b name:c`. Arguments are operator expressions over
// terms; a leading operator after the head (`sort -x`) makes the whole
// thing an operator expression instead.
func (p *parser) call() (ast.Expr, error) {
	head, err := p.operand()
	if err != nil {
		return nil, err
	}
	if !startsTerm(p.peek()) {
		return p.binary(head, 0)
	}
	c := &ast.Call{Func: head}
	for startsTerm(p.peek()) {
		if p.at(identToken) && p.peekAt(1).is(opToken, ":") {
			name := p.next()
			p.next()
			value, err := p.argument()
			if err != nil {
				return nil, err
			}
			c.Named = append(c.Named, ast.NamedArg{
				Name:  identText(name.text),
				Value: value,
				Loc:   p.span(name.start, p.prev().end),
			})
			continue
		}
		arg, err := p.argument()
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, arg)
	}
	c.Loc = head.Span().Join(p.span(p.prev().start, p.prev().end))
	return c, nil
}

func (p *parser) argument() (ast.Expr, error) {
	alias := p.alias()
	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	e, err := p.binary(left, 0)
	if err != nil {
		return nil, err
	}
	if alias != "" {
		ast.SetAlias(e, alias)
	}
	return e, nil
}

func binaryOp(t token) (string, int, bool) {
	if t.kind != opToken {
		return "", 0, false
	}
	prec, ok := ast.OpPrecedence(t.text)
	return t.text, prec, ok
}

// binary continues an operator expression whose first operand is left.
func (p *parser) binary(left ast.Expr, minPrec int) (ast.Expr, error) {
	for {
		op, prec, ok := binaryOp(p.peek())
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		if op == ".." && !startsOperand(p.peek()) {
			left = &ast.Range{Node: ast.Node{Loc: left.Span().Join(p.span(p.prev().start, p.prev().end))}, Start: left}
			continue
		}
		right, err := p.operand()
		if err != nil {
			return nil, err
		}
		for {
			_, next, ok := binaryOp(p.peek())
			if !ok || next <= prec {
				break
			}
			right, err = p.binary(right, next)
			if err != nil {
				return nil, err
			}
		}
		sp := left.Span().Join(right.Span())
		if op == ".." {
			left = &ast.Range{Node: ast.Node{Loc: sp}, Start: left, End: right}
			continue
		}
		left = &ast.Binary{Node: ast.Node{Loc: sp}, Op: op, Left: left, Right: right}
	}
}

func startsOperand(t token) bool {
	if startsTerm(t) {
		return true
	}
	return t.kind == opToken && (t.text == "-" || t.text == "+" || t.text == "!" || t.text == "==")
}

// operand is a term with optional prefix operators.
func (p *parser) operand() (ast.Expr, error) {
	t := p.peek()
	if t.kind == opToken {
		switch t.text {
		case "-", "+", "!", "==":
			p.next()
			inner, err := p.operand()
			if err != nil {
				return nil, err
			}
			return &ast.Unary{Node: ast.Node{Loc: p.span(t.start, inner.Span().End.Offset)}, Op: t.text, Operand: inner}, nil
		case "..":
			p.next()
			end, err := p.operand()
			if err != nil {
				return nil, err
			}
			return &ast.Range{Node: ast.Node{Loc: p.span(t.start, end.Span().End.Offset)}, End: end}, nil
		}
	}
	return p.term()
}

func (p *parser) term() (ast.Expr, error) {
	t := p.peek()
	switch t.kind {
	case identToken:
		return p.identTerm()
	case numberToken:
		return p.number()
	case stringToken:
		p.next()
		s, err := unquote(t.text)
		if err != nil {
			return nil, p.errorf(t, "%v", err)
		}
		return &ast.Literal{Node: ast.Node{Loc: p.span(t.start, t.end)}, Kind: ast.LitString, Value: norm.NFC.String(s)}, nil
	case dateToken:
		p.next()
		return dateLiteral(t, p.span(t.start, t.end)), nil
	case paramToken:
		p.next()
		return &ast.QueryParam{Node: ast.Node{Loc: p.span(t.start, t.end)}, Name: t.text[1:]}, nil
	case opToken:
		switch t.text {
		case "(":
			return p.parens()
		case "{":
			return p.tuple()
		case "[":
			return p.array()
		}
	}
	return nil, p.errorf(t, "unexpected %s", describe(t))
}

func (p *parser) parens() (ast.Expr, error) {
	open := p.next()
	p.skipNewlines()
	inner, err := p.pipeline(true)
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	closing, err := p.expectOp(")")
	if err != nil {
		return nil, err
	}
	ast.SetSpan(inner, p.span(open.start, closing.end))
	return inner, nil
}

// items reads comma separated steps up to the closing bracket. New lines
// are insignificant inside brackets.
func (p *parser) items(closing string) ([]ast.Expr, token, error) {
	var out []ast.Expr
	for {
		p.skipNewlines()
		if p.atOp(closing) {
			return out, p.next(), nil
		}
		e, err := p.step()
		if err != nil {
			return nil, token{}, err
		}
		out = append(out, e)
		p.skipNewlines()
		if p.atOp(",") {
			p.next()
			continue
		}
		if !p.atOp(closing) {
			return nil, token{}, p.errorf(p.peek(), "expected `,` or `%s`, found %s", closing, describe(p.peek()))
		}
	}
}

func (p *parser) tuple() (ast.Expr, error) {
	open := p.next()
	fields, closing, err := p.items("}")
	if err != nil {
		return nil, err
	}
	return &ast.Tuple{Node: ast.Node{Loc: p.span(open.start, closing.end)}, Fields: fields}, nil
}

func (p *parser) array() (ast.Expr, error) {
	open := p.next()
	items, closing, err := p.items("]")
	if err != nil {
		return nil, err
	}
	return &ast.Array{Node: ast.Node{Loc: p.span(open.start, closing.end)}, Items: items}, nil
}

func (p *parser) identTerm() (ast.Expr, error) {
	first := p.next()
	sp := p.span(first.start, first.end)
	switch first.text {
	case "true", "false":
		return &ast.Literal{Node: ast.Node{Loc: sp}, Kind: ast.LitBool, Value: first.text}, nil
	case "null":
		return &ast.Literal{Node: ast.Node{Loc: sp}, Kind: ast.LitNull, Value: "null"}, nil
	case "case":
		if p.atOp("[") {
			return p.caseExpr(first)
		}
	case "f", "s":
		if t := p.peek(); t.kind == stringToken && t.start == first.end {
			return p.interpolated(first)
		}
	}

	path := []string{identText(first.text)}
	end := first.end
	for p.atOp(".") && p.peek().start == end {
		dot := p.next()
		t := p.peek()
		if t.start != dot.end || !(t.kind == identToken || t.is(opToken, "*")) {
			return nil, p.errorf(t, "expected a name after `.`")
		}
		p.next()
		path = append(path, identText(t.text))
		end = t.end
	}
	return &ast.Ident{Node: ast.Node{Loc: p.span(first.start, end)}, Path: path}, nil
}

func (p *parser) caseExpr(kw token) (ast.Expr, error) {
	p.next()
	c := &ast.Case{}
	for {
		p.skipNewlines()
		if p.atOp("]") {
			break
		}
		cond, err := p.call()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectOp("=>"); err != nil {
			return nil, err
		}
		value, err := p.call()
		if err != nil {
			return nil, err
		}
		c.Arms = append(c.Arms, ast.CaseArm{Cond: cond, Value: value})
		p.skipNewlines()
		if p.atOp(",") {
			p.next()
		}
	}
	closing := p.next()
	c.Loc = p.span(kw.start, closing.end)
	return c, nil
}

func (p *parser) number() (ast.Expr, error) {
	t := p.next()
	digits := strings.ReplaceAll(t.text, "_", "")
	if unit := p.peek(); unit.kind == identToken && unit.start == t.end {
		p.next()
		if strings.ContainsAny(digits, ".eE") {
			return nil, p.errorf(t, "interval `%s%s` must have an integer count", t.text, unit.text)
		}
		return &ast.Literal{
			Node:  ast.Node{Loc: p.span(t.start, unit.end)},
			Kind:  ast.LitInterval,
			Value: digits,
			Unit:  unit.text,
		}, nil
	}
	kind := ast.LitInt
	if strings.ContainsAny(digits, ".eE") {
		kind = ast.LitFloat
	}
	if kind == ast.LitInt {
		if _, err := strconv.ParseInt(digits, 10, 64); err != nil {
			return nil, p.errorf(t, "integer `%s` out of range", t.text)
		}
	}
	return &ast.Literal{Node: ast.Node{Loc: p.span(t.start, t.end)}, Kind: kind, Value: digits}, nil
}

func dateLiteral(t token, sp ast.Span) *ast.Literal {
	text := t.text[1:]
	kind := ast.LitDate
	switch {
	case strings.Contains(text, "T"):
		kind = ast.LitTimestamp
	case strings.Contains(text, ":"):
		kind = ast.LitTime
	}
	return &ast.Literal{Node: ast.Node{Loc: sp}, Kind: kind, Value: text}
}

// identText strips backticks and normalises the name.
func identText(s string) string {
	s = strings.TrimPrefix(strings.TrimSuffix(s, "`"), "`")
	return norm.NFC.String(s)
}

func unquote(lit string) (string, error) {
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, "\\") {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("unterminated escape")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '"', '\'', '{', '}':
			b.WriteByte(body[i])
		default:
			return "", fmt.Errorf("unknown escape `\\%c`", body[i])
		}
	}
	return b.String(), nil
}
