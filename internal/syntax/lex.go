package syntax

import (
	"fmt"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	blankToken = iota
	newlineToken
	numberToken
	stringToken
	identToken
	dateToken
	paramToken
	opToken
	eofToken
)

var blankMatcher = parsly.NewToken(blankToken, "Blank", &blankMatch{})
var newlineMatcher = parsly.NewToken(newlineToken, "Newline", matcher.NewByte('\n'))
var numberMatcher = parsly.NewToken(numberToken, "Number", &numberMatch{})
var stringMatcher = parsly.NewToken(stringToken, "String", &quoteMatch{})
var identMatcher = parsly.NewToken(identToken, "Identifier", &identMatch{})
var dateMatcher = parsly.NewToken(dateToken, "Date", &prefixedMatch{prefix: '@', part: isDatePart})
var paramMatcher = parsly.NewToken(paramToken, "Param", &prefixedMatch{prefix: '$', part: isIdentPart})

// Longer operators come first: parsly returns the first token that matches.
var operators = []string{
	"->", "=>", "==", "!=", ">=", "<=", "&&", "||", "??", "~=", "//", "..",
}

var punctuation = []byte("+-*/%<>!=|:,.(){}[]")

var tokenMatchers = buildMatchers()

func buildMatchers() []*parsly.Token {
	out := []*parsly.Token{newlineMatcher, numberMatcher, stringMatcher, identMatcher, dateMatcher, paramMatcher}
	for _, op := range operators {
		out = append(out, parsly.NewToken(opToken, op, matcher.NewFragment(op)))
	}
	for _, b := range punctuation {
		out = append(out, parsly.NewToken(opToken, string(b), matcher.NewByte(b)))
	}
	return out
}

// token is one lexeme; start and end are byte offsets into the whole source.
type token struct {
	kind  int
	text  string
	start int
	end   int
}

func (t token) is(kind int, text string) bool {
	return t.kind == kind && t.text == text
}

// lex splits src into tokens. base is the offset of src within the full
// query text, so tokens of an interpolation hole keep absolute offsets.
func lex(src []byte, base int) ([]token, error) {
	cursor := parsly.NewCursor("", src, 0)
	var toks []token
	for {
		matched := cursor.MatchAfterOptional(blankMatcher, tokenMatchers...)
		switch matched.Code {
		case parsly.EOF:
			toks = append(toks, token{kind: eofToken, start: base + len(src), end: base + len(src)})
			return toks, nil
		case parsly.Invalid:
			return nil, &lexError{offset: base + cursor.Pos, char: src[cursor.Pos]}
		}
		text := matched.Text(cursor)
		start := base + matched.Offset
		toks = append(toks, token{kind: matched.Code, text: text, start: start, end: start + len(text)})
	}
}

type lexError struct {
	offset int
	char   byte
}

func (e *lexError) Error() string {
	return fmt.Sprintf("unexpected character %q at offset %d", e.char, e.offset)
}

// blankMatch skips spaces, tabs, carriage returns and `#` comments.
// Newlines are tokens of their own.
type blankMatch struct{}

func (m *blankMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	for pos < cursor.InputSize {
		switch b := cursor.Input[pos]; {
		case b == ' ' || b == '\t' || b == '\r':
			pos++
		case b == '#':
			for pos < cursor.InputSize && cursor.Input[pos] != '\n' {
				pos++
			}
		default:
			return pos - cursor.Pos
		}
	}
	return pos - cursor.Pos
}

// numberMatch accepts 12, 1_000, 1.5 and 2e10. A dot followed by another
// dot ends the number so `1..10` lexes as a range.
type numberMatch struct{}

func (m *numberMatch) Match(cursor *parsly.Cursor) int {
	in, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size || !isDigit(in[pos]) {
		return 0
	}
	digits := func(p int) int {
		for p < size && (isDigit(in[p]) || in[p] == '_') {
			p++
		}
		return p
	}
	pos = digits(pos)
	if pos+1 < size && in[pos] == '.' && isDigit(in[pos+1]) {
		pos = digits(pos + 1)
	}
	if pos+1 < size && (in[pos] == 'e' || in[pos] == 'E') {
		next := pos + 1
		if next < size && (in[next] == '+' || in[next] == '-') {
			next++
		}
		if next < size && isDigit(in[next]) {
			pos = digits(next)
		}
	}
	return pos - cursor.Pos
}

// quoteMatch accepts a single- or double-quoted string with backslash
// escapes. Unterminated strings do not match.
type quoteMatch struct{}

func (m *quoteMatch) Match(cursor *parsly.Cursor) int {
	in, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size || (in[pos] != '"' && in[pos] != '\'') {
		return 0
	}
	quote := in[pos]
	for p := pos + 1; p < size; p++ {
		switch in[p] {
		case '\\':
			p++
		case '\n':
			return 0
		case quote:
			return p + 1 - pos
		}
	}
	return 0
}

type identMatch struct{}

func (m *identMatch) Match(cursor *parsly.Cursor) int {
	in, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size {
		return 0
	}
	if in[pos] == '`' {
		for p := pos + 1; p < size; p++ {
			if in[p] == '`' {
				return p + 1 - pos
			}
			if in[p] == '\n' {
				return 0
			}
		}
		return 0
	}
	if !isIdentStart(in[pos]) {
		return 0
	}
	p := pos + 1
	for p < size && isIdentPart(in[p]) {
		p++
	}
	return p - pos
}

// prefixedMatch accepts a prefix byte followed by at least one part byte.
type prefixedMatch struct {
	prefix byte
	part   func(byte) bool
}

func (m *prefixedMatch) Match(cursor *parsly.Cursor) int {
	in, pos, size := cursor.Input, cursor.Pos, cursor.InputSize
	if pos >= size || in[pos] != m.prefix {
		return 0
	}
	p := pos + 1
	for p < size && m.part(in[p]) {
		p++
	}
	if p == pos+1 {
		return 0
	}
	return p - pos
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Bytes from 0x80 up are accepted so identifiers may contain any
// non-ASCII letter; they are NFC normalised later.
func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b >= 0x80
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDatePart(b byte) bool {
	return isDigit(b) || b == '-' || b == ':' || b == '.' || b == 'T' || b == 'Z' || b == '+'
}
