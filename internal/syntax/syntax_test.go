package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/ast"
)

func mainOf(t *testing.T, src string) ast.Expr {
	t.Helper()
	mod, err := Parse(src)
	require.NoError(t, err)
	for _, s := range mod.Stmts {
		if m, ok := s.(*ast.Main); ok {
			return m.Value
		}
	}
	t.Fatalf("no main statement in %q", src)
	return nil
}

func TestParsePrinted(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"single step", "from db.artists", "from db.artists"},
		{"lines", "from db.film\ngroup", "(from db.film | group)"},
		{"pipes", "from db.t | take 10", "(from db.t | take 10)"},
		{"tuple", "from db.t\nselect {a, b = c + 1}", "(from db.t | select {a, b = c + 1})"},
		{"sort desc", "from db.artists\nsort -name", "(from db.artists | sort - name)"},
		{"precedence", "from db.t\nderive {x = a + b * c}", "(from db.t | derive {x = a + b * c})"},
		{"parens kept", "from db.t\nderive {x = (a + b) * c}", "(from db.t | derive {x = (a + b) * c})"},
		{"range", "from db.t\ntake 1..10", "(from db.t | take 1..10)"},
		{"named arg", "from db.t\njoin side:left d = db.d (==id)", "(from db.t | join side:left d = db.d ==id)"},
		{"nested pipeline", "from db.t\ngroup {a} (take 1)", "(from db.t | group {a} (take 1))"},
		{"all columns", "from db.t\nselect {t.*}", "(from db.t | select {t.*})"},
		{"interval and date", "from db.t\nfilter d > @2024-01-31 + 3days", "(from db.t | filter (d > @2024-01-31 + 3days))"},
		{"param", "from db.t\nfilter id == $1", "(from db.t | filter (id == $1))"},
		{"fstring", `from db.t` + "\n" + `select f"{a}/{b}"`, `(from db.t | select f"{a}/{b}")`},
		{"case", "from db.t\nderive {k = case [a > 1 => \"big\", true => \"small\"]}", `(from db.t | derive {k = case [a > 1 => "big", true => "small"]})`},
		{"comment", "from db.t # all rows\ntake 5", "(from db.t | take 5)"},
		{"blank lines", "from db.t\n\n\ntake 5\n", "(from db.t | take 5)"},
		{"relation literal", "[{a = 1, b = \"x\"}, {a = -2, b = \"y\"}]", `[{a = 1, b = "x"}, {a = -2, b = "y"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ast.Print(mainOf(t, tt.src)))
		})
	}
}

func TestSpans(t *testing.T) {
	src := "from db.film\ngroup"
	mod, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, mod.Stmts, 1)

	main := mod.Stmts[0].(*ast.Main)
	assert.Equal(t, "1:1-2:6", main.Loc.String())

	p := main.Value.(*ast.Pipeline)
	require.Len(t, p.Exprs, 2)
	group := p.Exprs[1].(*ast.Ident)
	assert.Equal(t, []string{"group"}, group.Path)
	assert.Equal(t, 13, group.Loc.Start.Offset)
	assert.Equal(t, "2:1-2:6", group.Loc.String())
}

func TestParensWidenSpan(t *testing.T) {
	e := mainOf(t, "[{a=(1+1)}]")
	arr := e.(*ast.Array)
	tup := arr.Items[0].(*ast.Tuple)
	bin := tup.Fields[0].(*ast.Binary)
	assert.Equal(t, "a", bin.AliasName())
	assert.Equal(t, 4, bin.Loc.Start.Offset)
	assert.Equal(t, 9, bin.Loc.End.Offset)
	assert.Equal(t, "1 + 1", ast.PrintValue(bin))
}

func TestLetAndHeader(t *testing.T) {
	src := "prql target:sql.postgres\n\nlet f = country -> country == \"Canada\"\n\nfrom db.employees\nfilter f location\n"
	mod, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, mod.Stmts, 3)

	header := mod.Header()
	require.NotNil(t, header)
	assert.Equal(t, "sql.postgres", header.Target)

	let := mod.Stmts[1].(*ast.Let)
	assert.Equal(t, "f", let.Name)
	fn, ok := let.Value.(*ast.Func)
	require.True(t, ok)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "country", fn.Params[0].Name)
	assert.Equal(t, `country == "Canada"`, ast.Print(fn.Body))

	main := mod.Stmts[2].(*ast.Main)
	assert.Equal(t, `(from db.employees | filter f location)`, ast.Print(main.Value))
}

func TestLambdaNamedParam(t *testing.T) {
	mod, err := Parse("let add = a b:1 -> a + b\nfrom db.t")
	require.NoError(t, err)
	fn := mod.Stmts[0].(*ast.Let).Value.(*ast.Func)
	require.Len(t, fn.Params, 2)
	assert.False(t, fn.Params[0].Named)
	assert.True(t, fn.Params[1].Named)
	assert.Equal(t, "1", ast.Print(fn.Params[1].Default))
}

func TestMultilineParens(t *testing.T) {
	e := mainOf(t, "from db.t\ngroup {a} (\n  sort b\n  take 1\n)")
	assert.Equal(t, "(from db.t | group {a} (sort b | take 1))", ast.Print(e))
}

func TestEmptyHole(t *testing.T) {
	e := mainOf(t, "from db.x\nselect f\"{}\"")
	call := e.(*ast.Pipeline).Exprs[1].(*ast.Call)
	fs := call.Args[0].(*ast.FString)
	require.Len(t, fs.Items, 1)
	hole := fs.Items[0]
	assert.True(t, hole.Hole)
	assert.Nil(t, hole.Expr)
	assert.Equal(t, "2:10-2:12", hole.Loc.String())
}

func TestHoleOffsets(t *testing.T) {
	e := mainOf(t, "from db.foo\nselect lower f\"{x}/{y}\"")
	call := e.(*ast.Pipeline).Exprs[1].(*ast.Call)
	lower := call.Args[0].(*ast.Ident)
	assert.Equal(t, "lower", lower.Name())
	fs := call.Args[1].(*ast.FString)
	require.Len(t, fs.Items, 3)
	x := fs.Items[0].Expr.(*ast.Ident)
	assert.Equal(t, "2:17-2:18", x.Loc.String())
	assert.Equal(t, "/", fs.Items[1].Text)
	assert.Equal(t, "y", fs.Items[2].Expr.(*ast.Ident).Name())
}

func TestEscapedBraces(t *testing.T) {
	e := mainOf(t, "from db.t\nselect s\"json_obj({{}}) -> {a}\"")
	call := e.(*ast.Pipeline).Exprs[1].(*ast.Call)
	ss := call.Args[0].(*ast.SString)
	require.Len(t, ss.Items, 2)
	assert.Equal(t, "json_obj({}) -> ", ss.Items[0].Text)
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		src  string
		kind ast.LitKind
		val  string
		unit string
	}{
		{"12", ast.LitInt, "12", ""},
		{"1_000", ast.LitInt, "1000", ""},
		{"1.5", ast.LitFloat, "1.5", ""},
		{"2e10", ast.LitFloat, "2e10", ""},
		{"true", ast.LitBool, "true", ""},
		{"null", ast.LitNull, "null", ""},
		{`"a\"b"`, ast.LitString, `a"b`, ""},
		{`'x'`, ast.LitString, "x", ""},
		{"@2024-01-31", ast.LitDate, "2024-01-31", ""},
		{"@12:30", ast.LitTime, "12:30", ""},
		{"@2024-01-31T12:30", ast.LitTimestamp, "2024-01-31T12:30", ""},
		{"3days", ast.LitInterval, "3", "days"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := ParseExpr(tt.src)
			require.NoError(t, err)
			lit, ok := e.(*ast.Literal)
			require.True(t, ok, "got %T", e)
			assert.Equal(t, tt.kind, lit.Kind)
			assert.Equal(t, tt.val, lit.Value)
			assert.Equal(t, tt.unit, lit.Unit)
		})
	}
}

func TestNormalisesNames(t *testing.T) {
	e, err := ParseExpr("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", e.(*ast.Ident).Name())
}

func TestBacktickIdent(t *testing.T) {
	e, err := ParseExpr("`order id`")
	require.NoError(t, err)
	assert.Equal(t, []string{"order id"}, e.(*ast.Ident).Path)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad char", "from db.t\nselect ;", "2:8: unexpected character ';'"},
		{"unclosed paren", "from db.t\nderive {x = (a + b}", "2:19: expected `)`, found `}`"},
		{"let without name", "let = 1", "1:5: expected a name after `let`, found `=`"},
		{"unclosed hole", "from db.t\nselect f\"{a\"", "2:10: unexpected end of input while parsing interpolated string"},
		{"trailing", "from db.t\ntake 1 )", "2:8: unexpected `)`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			var serr *Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}
