package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// DecodeError reports a malformed AST document.
type DecodeError struct {
	Path    string // location inside the document, e.g. "stmts[1].value.args[0]"
	Message string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// DecodeJSON reads a module from its JSON tree form.
func DecodeJSON(data []byte) (*Module, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding AST JSON: %w", err)
	}
	return DecodeTree(raw)
}

// DecodeYAML reads a module from its YAML tree form.
func DecodeYAML(data []byte) (*Module, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding AST YAML: %w", err)
	}
	return DecodeTree(raw)
}

// DecodeTree converts a generic document (maps, slices and scalars as
// produced by encoding/json or yaml.v3) into a Module.
//
// Document shape:
//
//	stmts:
//	  - kind: let
//	    name: foo
//	    span: "2:5-2:18"
//	    value: {kind: literal, type: int, value: "123", span: "2:15-2:18"}
//	  - kind: main
//	    value: {kind: pipeline, exprs: [...]}
//
// Spans may be written as "L:C-L:C" or as {start: {...}, end: {...}}.
func DecodeTree(raw any) (*Module, error) {
	d := &decoder{}
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, &DecodeError{Message: fmt.Sprintf("expected an object at the document root, got %T", raw)}
	}
	stmts, err := d.list(root, "stmts", "stmts")
	if err != nil {
		return nil, err
	}
	mod := &Module{}
	for i, s := range stmts {
		path := fmt.Sprintf("stmts[%d]", i)
		obj, ok := s.(map[string]any)
		if !ok {
			return nil, &DecodeError{Path: path, Message: "expected an object"}
		}
		stmt, err := d.stmt(obj, path)
		if err != nil {
			return nil, err
		}
		mod.Stmts = append(mod.Stmts, stmt)
	}
	return mod, nil
}

type decoder struct{}

func (d *decoder) stmt(obj map[string]any, path string) (Stmt, error) {
	span, err := d.span(obj, path)
	if err != nil {
		return nil, err
	}
	switch kind := str(obj["kind"]); kind {
	case "let":
		name := ident(str(obj["name"]))
		if name == "" {
			return nil, &DecodeError{Path: path, Message: "let statement needs a name"}
		}
		value, err := d.requiredExpr(obj, "value", path)
		if err != nil {
			return nil, err
		}
		return &Let{Name: name, Value: value, Loc: span}, nil
	case "main":
		value, err := d.requiredExpr(obj, "value", path)
		if err != nil {
			return nil, err
		}
		return &Main{Value: value, Loc: span}, nil
	case "query":
		return &QueryDef{Target: str(obj["target"]), Version: str(obj["version"]), Loc: span}, nil
	default:
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown statement kind %q", kind)}
	}
}

func (d *decoder) requiredExpr(obj map[string]any, key, path string) (Expr, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("missing %q", key)}
	}
	return d.expr(raw, path+"."+key)
}

func (d *decoder) optionalExpr(obj map[string]any, key, path string) (Expr, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, nil
	}
	return d.expr(raw, path+"."+key)
}

func (d *decoder) exprList(obj map[string]any, key, path string) ([]Expr, error) {
	items, err := d.list(obj, key, path+"."+key)
	if err != nil {
		return nil, err
	}
	out := make([]Expr, 0, len(items))
	for i, item := range items {
		e, err := d.expr(item, fmt.Sprintf("%s.%s[%d]", path, key, i))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) expr(raw any, path string) (Expr, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected an expression object, got %T", raw)}
	}
	span, err := d.span(obj, path)
	if err != nil {
		return nil, err
	}
	node := Node{Loc: span, Alias: ident(str(obj["alias"]))}

	switch kind := str(obj["kind"]); kind {
	case "ident":
		var segs []string
		if name := str(obj["name"]); name != "" {
			segs = strings.Split(name, ".")
		} else {
			items, err := d.list(obj, "path", path+".path")
			if err != nil {
				return nil, err
			}
			for _, it := range items {
				segs = append(segs, str(it))
			}
		}
		if len(segs) == 0 {
			return nil, &DecodeError{Path: path, Message: "identifier needs a name or path"}
		}
		for i := range segs {
			segs[i] = ident(segs[i])
		}
		return &Ident{Node: node, Path: segs}, nil

	case "literal":
		k, ok := ParseLitKind(str(obj["type"]))
		if !ok {
			return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown literal type %q", str(obj["type"]))}
		}
		value := str(obj["value"])
		if k == LitString {
			value = norm.NFC.String(value)
		}
		return &Literal{Node: node, Kind: k, Value: value, Unit: str(obj["unit"])}, nil

	case "tuple":
		fields, err := d.exprList(obj, "fields", path)
		if err != nil {
			return nil, err
		}
		return &Tuple{Node: node, Fields: fields}, nil

	case "array":
		items, err := d.exprList(obj, "items", path)
		if err != nil {
			return nil, err
		}
		return &Array{Node: node, Items: items}, nil

	case "range":
		start, err := d.optionalExpr(obj, "start", path)
		if err != nil {
			return nil, err
		}
		end, err := d.optionalExpr(obj, "end", path)
		if err != nil {
			return nil, err
		}
		return &Range{Node: node, Start: start, End: end}, nil

	case "binary":
		left, err := d.requiredExpr(obj, "left", path)
		if err != nil {
			return nil, err
		}
		right, err := d.requiredExpr(obj, "right", path)
		if err != nil {
			return nil, err
		}
		op := str(obj["op"])
		if _, ok := opPrec[op]; !ok {
			return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown binary operator %q", op)}
		}
		return &Binary{Node: node, Op: op, Left: left, Right: right}, nil

	case "unary":
		operand, err := d.requiredExpr(obj, "operand", path)
		if err != nil {
			return nil, err
		}
		op := str(obj["op"])
		switch op {
		case "-", "+", "!", "==":
		default:
			return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown unary operator %q", op)}
		}
		return &Unary{Node: node, Op: op, Operand: operand}, nil

	case "call":
		fn, err := d.requiredExpr(obj, "func", path)
		if err != nil {
			return nil, err
		}
		args, err := d.exprList(obj, "args", path)
		if err != nil {
			return nil, err
		}
		call := &Call{Node: node, Func: fn, Args: args}
		named, err := d.list(obj, "named", path+".named")
		if err != nil {
			return nil, err
		}
		for i, raw := range named {
			npath := fmt.Sprintf("%s.named[%d]", path, i)
			nobj, ok := raw.(map[string]any)
			if !ok {
				return nil, &DecodeError{Path: npath, Message: "expected an object"}
			}
			value, err := d.requiredExpr(nobj, "value", npath)
			if err != nil {
				return nil, err
			}
			nspan, err := d.span(nobj, npath)
			if err != nil {
				return nil, err
			}
			call.Named = append(call.Named, NamedArg{Name: ident(str(nobj["name"])), Value: value, Loc: nspan})
		}
		return call, nil

	case "pipeline":
		exprs, err := d.exprList(obj, "exprs", path)
		if err != nil {
			return nil, err
		}
		if len(exprs) == 0 {
			return nil, &DecodeError{Path: path, Message: "pipeline needs at least one step"}
		}
		return &Pipeline{Node: node, Exprs: exprs}, nil

	case "func":
		body, err := d.requiredExpr(obj, "body", path)
		if err != nil {
			return nil, err
		}
		fn := &Func{Node: node, Body: body}
		params, err := d.list(obj, "params", path+".params")
		if err != nil {
			return nil, err
		}
		for i, raw := range params {
			ppath := fmt.Sprintf("%s.params[%d]", path, i)
			pobj, ok := raw.(map[string]any)
			if !ok {
				return nil, &DecodeError{Path: ppath, Message: "expected an object"}
			}
			def, err := d.optionalExpr(pobj, "default", ppath)
			if err != nil {
				return nil, err
			}
			pspan, err := d.span(pobj, ppath)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, Param{
				Name:    ident(str(pobj["name"])),
				Named:   boolean(pobj["named"]) || def != nil,
				Default: def,
				Loc:     pspan,
			})
		}
		return fn, nil

	case "fstring", "sstring":
		items, err := d.interp(obj, path)
		if err != nil {
			return nil, err
		}
		if kind == "fstring" {
			return &FString{Node: node, Items: items}, nil
		}
		return &SString{Node: node, Items: items}, nil

	case "case":
		arms, err := d.list(obj, "arms", path+".arms")
		if err != nil {
			return nil, err
		}
		c := &Case{Node: node}
		for i, raw := range arms {
			apath := fmt.Sprintf("%s.arms[%d]", path, i)
			aobj, ok := raw.(map[string]any)
			if !ok {
				return nil, &DecodeError{Path: apath, Message: "expected an object"}
			}
			cond, err := d.requiredExpr(aobj, "cond", apath)
			if err != nil {
				return nil, err
			}
			value, err := d.requiredExpr(aobj, "value", apath)
			if err != nil {
				return nil, err
			}
			c.Arms = append(c.Arms, CaseArm{Cond: cond, Value: value})
		}
		return c, nil

	case "param":
		return &QueryParam{Node: node, Name: str(obj["name"])}, nil

	default:
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown expression kind %q", kind)}
	}
}

func (d *decoder) interp(obj map[string]any, path string) ([]InterpItem, error) {
	raw, err := d.list(obj, "items", path+".items")
	if err != nil {
		return nil, err
	}
	items := make([]InterpItem, 0, len(raw))
	for i, r := range raw {
		ipath := fmt.Sprintf("%s.items[%d]", path, i)
		iobj, ok := r.(map[string]any)
		if !ok {
			return nil, &DecodeError{Path: ipath, Message: "expected an object"}
		}
		span, err := d.span(iobj, ipath)
		if err != nil {
			return nil, err
		}
		e, err := d.optionalExpr(iobj, "expr", ipath)
		if err != nil {
			return nil, err
		}
		items = append(items, InterpItem{
			Text: norm.NFC.String(str(iobj["text"])),
			Expr: e,
			Hole: e != nil || boolean(iobj["hole"]),
			Loc:  span,
		})
	}
	return items, nil
}

func (d *decoder) span(obj map[string]any, path string) (Span, error) {
	raw, ok := obj["span"]
	if !ok || raw == nil {
		return Span{}, nil
	}
	switch v := raw.(type) {
	case string:
		s, err := ParseSpan(v)
		if err != nil {
			return Span{}, &DecodeError{Path: path, Message: err.Error()}
		}
		return s, nil
	case map[string]any:
		start, err := position(v["start"])
		if err != nil {
			return Span{}, &DecodeError{Path: path + ".span.start", Message: err.Error()}
		}
		end, err := position(v["end"])
		if err != nil {
			return Span{}, &DecodeError{Path: path + ".span.end", Message: err.Error()}
		}
		return Span{Start: start, End: end}, nil
	default:
		return Span{}, &DecodeError{Path: path + ".span", Message: fmt.Sprintf("unsupported span form %T", raw)}
	}
}

func (d *decoder) list(obj map[string]any, key, path string) ([]any, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected a list, got %T", raw)}
	}
	return items, nil
}

func position(raw any) (Position, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Position{}, fmt.Errorf("expected a position object, got %T", raw)
	}
	var p Position
	var err error
	if p.Offset, err = integer(obj["offset"]); err != nil {
		return Position{}, fmt.Errorf("offset: %w", err)
	}
	if p.Line, err = integer(obj["line"]); err != nil {
		return Position{}, fmt.Errorf("line: %w", err)
	}
	if p.Column, err = integer(obj["column"]); err != nil {
		return Position{}, fmt.Errorf("column: %w", err)
	}
	return p, nil
}

func integer(raw any) (int, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	default:
		return 0, fmt.Errorf("expected an integer, got %T", raw)
	}
}

// str renders scalars as strings so `value: 123` and `value: "123"` decode
// the same way.
func str(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func boolean(raw any) bool {
	b, _ := raw.(bool)
	return b
}

// ident normalises identifiers to NFC so that visually equal names resolve
// to the same declaration.
func ident(s string) string {
	return norm.NFC.String(s)
}
