package ir

// Doc renders the module as a canonical document (maps, slices and
// scalars only) suitable for MarshalCanonical and for JSON output.
func (m *Module) Doc() map[string]any {
	tables := make([]any, 0, len(m.Tables))
	for _, t := range m.Tables {
		tables = append(tables, map[string]any{
			"name": t.Name,
			"expr": t.Expr.Doc(),
		})
	}
	doc := map[string]any{
		"tables": tables,
	}
	if m.Target != "" {
		doc["target"] = m.Target
	}
	if m.Main != nil {
		doc["main"] = m.Main.Doc()
	}
	return doc
}

// Doc renders the expression tree. Spans are omitted.
func (e *Expr) Doc() map[string]any {
	if e == nil {
		return map[string]any{}
	}
	doc := map[string]any{
		"id":   e.ID,
		"kind": KindName(e.Kind),
		"type": e.Type.String(),
	}
	if e.Alias != "" {
		doc["alias"] = e.Alias
	}
	if e.Lineage != nil {
		cols := make([]any, 0, len(e.Lineage.Columns))
		for _, c := range e.Lineage.Columns {
			cols = append(cols, c.Qualified())
		}
		doc["lineage"] = cols
	}

	switch k := e.Kind.(type) {
	case Literal:
		doc["value"] = valueDoc(k.Value)
	case ColumnRef:
		doc["name"] = k.Name
		doc["target"] = k.Target
		if k.Input != "" {
			doc["input"] = k.Input
		}
		if k.Inferred {
			doc["inferred"] = true
		}
	case All:
		if k.Input != "" {
			doc["input"] = k.Input
		}
	case TableRef:
		doc["name"] = k.Name
	case Call:
		doc["func"] = k.Func
		doc["args"] = docs(k.Args)
	case Tuple:
		doc["fields"] = docs(k.Fields)
	case Array:
		doc["items"] = docs(k.Items)
	case Range:
		if k.Start != nil {
			doc["start"] = k.Start.Doc()
		}
		if k.End != nil {
			doc["end"] = k.End.Doc()
		}
	case Interp:
		parts := make([]any, 0, len(k.Parts))
		for _, p := range k.Parts {
			if p.Expr != nil {
				parts = append(parts, map[string]any{"expr": p.Expr.Doc()})
			} else {
				parts = append(parts, map[string]any{"text": p.Text})
			}
		}
		doc["parts"] = parts
		doc["sql"] = k.SQL
	case Case:
		arms := make([]any, 0, len(k.Arms))
		for _, a := range k.Arms {
			arms = append(arms, map[string]any{"cond": a.Cond.Doc(), "value": a.Value.Doc()})
		}
		doc["arms"] = arms
	case Param:
		doc["name"] = k.Name
	case RelationLiteral:
		cols := make([]any, len(k.Columns))
		for i, c := range k.Columns {
			cols[i] = c
		}
		rows := make([]any, 0, len(k.Rows))
		for _, r := range k.Rows {
			row := make([]any, len(r))
			for i, v := range r {
				row[i] = valueDoc(v)
			}
			rows = append(rows, row)
		}
		doc["columns"] = cols
		doc["rows"] = rows
	case Transform:
		doc["transform"] = k.Kind.String()
		if k.Input != nil {
			doc["input"] = k.Input.Doc()
		}
		if len(k.Args) > 0 {
			doc["args"] = docs(k.Args)
		}
		if len(k.By) > 0 {
			doc["by"] = docs(k.By)
		}
		if len(k.Sort) > 0 {
			keys := make([]any, 0, len(k.Sort))
			for _, s := range k.Sort {
				keys = append(keys, map[string]any{"expr": s.Expr.Doc(), "desc": s.Desc})
			}
			doc["sort"] = keys
		}
		if k.With != nil {
			doc["with"] = k.With.Doc()
		}
		if k.Side != "" {
			doc["side"] = k.Side
		}
		if k.Body != nil {
			doc["body"] = k.Body.Doc()
		}
		if len(k.Named) > 0 {
			named := map[string]any{}
			for name, v := range k.Named {
				named[name] = v.Doc()
			}
			doc["named"] = named
		}
	}
	return doc
}

func docs(xs []*Expr) []any {
	out := make([]any, 0, len(xs))
	for _, x := range xs {
		out = append(out, x.Doc())
	}
	return out
}
