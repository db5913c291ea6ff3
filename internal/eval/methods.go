package eval

import (
	"strings"

	"xdl/internal/dataframe"
	xerrors "xdl/internal/errors"
	"xdl/internal/parser"
	"xdl/internal/stdlib"
	"xdl/internal/value"
)

func (ev *Evaluator) evalMethodCall(m *parser.MethodCall) (value.Value, error) {
	// Python.Import is an external-collaborator seam (spec.md §1): the
	// receiver is never an actual bound variable, so it is intercepted
	// before the object expression is evaluated.
	if v, ok := m.Object.(*parser.Variable); ok && strings.EqualFold(v.Name, "PYTHON") && strings.EqualFold(m.Method, "IMPORT") {
		return ev.pythonImport(m.Args, m.Line)
	}
	recv, err := ev.EvalExpr(m.Object)
	if err != nil {
		return value.Undefined, err
	}
	args := make([]value.Value, len(m.Args))
	for i, a := range m.Args {
		v, err := ev.EvalExpr(a)
		if err != nil {
			return value.Undefined, err
		}
		args[i] = v
	}
	kwargs, err := ev.evalKeywords(m.Keywords)
	if err != nil {
		return value.Undefined, err
	}
	switch recv.Kind {
	case value.KindDataFrame:
		return ev.callDataFrameMethod(recv.ID, m.Method, args, kwargs, m.Line)
	case value.KindObject:
		return ev.callObjectMethod(recv, m.Method, args, m.Line)
	case value.KindArray, value.KindMultiDim, value.KindNestedArray, value.KindString:
		return ev.callValueMethod(recv, m.Method, args, m.Line)
	default:
		return value.Undefined, xerrors.NewAt(xerrors.TypeMismatch, loc(m.Line), "cannot call method %s on %s", m.Method, recv.Kind)
	}
}

// pythonImport records the requested module but never executes foreign
// code: the Python interop bridge is an out-of-process collaborator,
// interfaces only (spec.md §1).
func (ev *Evaluator) pythonImport(argExprs []parser.Expr, line int) (value.Value, error) {
	if len(argExprs) < 1 {
		return value.Undefined, xerrors.NewAt(xerrors.InvalidArgument, loc(line), "PYTHON->IMPORT requires a module name")
	}
	name, err := ev.EvalExpr(argExprs[0])
	if err != nil {
		return value.Undefined, err
	}
	return value.Undefined, xerrors.NewAt(xerrors.NotImplemented, loc(line), "PYTHON->IMPORT(%q): the Python interop bridge is an external collaborator", name.Str)
}

func (ev *Evaluator) callDataFrameMethod(id int, method string, args []value.Value, kwargs map[string]value.Value, line int) (value.Value, error) {
	raw, ok := ev.Ctx.DataFrame(id)
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "dangling dataframe reference")
	}
	df := raw.(*dataframe.DataFrame)
	switch strings.ToUpper(method) {
	case "SHAPE":
		return value.Array([]float64{float64(df.NRows()), float64(df.NCols())}), nil
	case "NROWS", "HEIGHT", "LEN", "LENGTH":
		return value.Long(int64(df.NRows())), nil
	case "NCOLS", "WIDTH":
		return value.Long(int64(df.NCols())), nil
	case "COLUMNNAMES", "COLUMNS":
		names := df.ColumnNames()
		rows := make([]value.Value, len(names))
		for i, n := range names {
			rows[i] = value.String(n)
		}
		return value.NestedArray(rows), nil
	case "COLUMN", "COL":
		if len(args) < 1 {
			return value.Undefined, xerrors.NewAt(xerrors.InvalidArgument, loc(line), "%s requires a column name", method)
		}
		v, err := df.Column(args[0].Str)
		if err != nil {
			return value.Undefined, withLoc(err, line)
		}
		return v, nil
	case "ROW":
		if len(args) < 1 {
			return value.Undefined, xerrors.NewAt(xerrors.InvalidArgument, loc(line), "ROW requires a row index")
		}
		v, err := df.Row(int(args[0].ToLong()))
		if err != nil {
			return value.Undefined, withLoc(err, line)
		}
		return v, nil
	case "HEAD":
		n := 5
		if len(args) > 0 {
			n = int(args[0].ToLong())
		}
		nid := ev.Ctx.NewDataFrame(df.Head(n))
		return value.DataFrame(nid), nil
	case "TAIL":
		n := 5
		if len(args) > 0 {
			n = int(args[0].ToLong())
		}
		nid := ev.Ctx.NewDataFrame(df.Tail(n))
		return value.DataFrame(nid), nil
	case "DESCRIBE", "INFO":
		return value.String(df.Describe()), nil
	case "WRITECSV":
		if len(args) < 1 {
			return value.Undefined, xerrors.NewAt(xerrors.InvalidArgument, loc(line), "WRITECSV requires a path")
		}
		if err := df.WriteCSV(args[0].Str, ','); err != nil {
			return value.Undefined, withLoc(err, line)
		}
		return value.Undefined, nil
	case "TOJSON":
		return value.String(df.ToJSON()), nil
	case "SELECT":
		names := make([]string, len(args))
		for i, a := range args {
			names[i] = a.Str
		}
		nd, err := df.Select(names...)
		if err != nil {
			return value.Undefined, withLoc(err, line)
		}
		nid := ev.Ctx.NewDataFrame(nd)
		return value.DataFrame(nid), nil
	case "SORTBY", "SORT":
		if len(args) < 1 {
			return value.Undefined, xerrors.NewAt(xerrors.InvalidArgument, loc(line), "%s requires a column name", method)
		}
		ascending := true
		if v, ok := kwargs["ASCENDING"]; ok {
			ascending = !v.IsZero()
		}
		if len(args) > 1 {
			ascending = !args[1].IsZero()
		}
		nd, err := df.SortBy(args[0].Str, ascending)
		if err != nil {
			return value.Undefined, withLoc(err, line)
		}
		nid := ev.Ctx.NewDataFrame(nd)
		return value.DataFrame(nid), nil
	default:
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "DataFrame has no method %s", method)
	}
}

func methodDef(raw interface{}) (name string, params []parser.Param, body []parser.Stmt, ok bool) {
	switch def := raw.(type) {
	case *parser.FunctionDef:
		return def.Name, def.Params, def.Body, true
	case *parser.ProcedureDef:
		return def.Name, def.Params, def.Body, true
	default:
		return "", nil, nil, false
	}
}

func (ev *Evaluator) callObjectMethod(recv value.Value, method string, args []value.Value, line int) (value.Value, error) {
	obj, ok := ev.Ctx.Object(recv.ID)
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "dangling object reference")
	}
	cls, ok := ev.Ctx.LookupClass(obj.Class)
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "unknown class %s", obj.Class)
	}
	raw, ok := cls.Methods[strings.ToUpper(method)]
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "class %s has no method %s", obj.Class, method)
	}
	_, params, body, ok := methodDef(raw)
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "malformed method definition for %s", method)
	}
	prevScope := ev.Ctx.PushFunctionScope()
	prevSelfID, hadSelf := ev.Ctx.BindSelf(recv.ID)
	defer func() {
		ev.Ctx.RestoreScope(prevScope)
		ev.Ctx.RestoreSelf(prevSelfID, hadSelf)
	}()
	if err := ev.bindParams(params, args, line); err != nil {
		return value.Undefined, err
	}
	return ev.execBlockCatchReturn(body)
}

func callBuiltinOn(ev *Evaluator, name string, recv value.Value, extra []value.Value, line int) (value.Value, error) {
	fn, ok := stdlib.Builtins[name]
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "builtin %s not registered", name)
	}
	args := append([]value.Value{recv}, extra...)
	v, err := fn(ev.Ctx, args, nil)
	if err != nil {
		return value.Undefined, withLoc(err, line)
	}
	return v, nil
}

func (ev *Evaluator) callValueMethod(recv value.Value, method string, args []value.Value, line int) (value.Value, error) {
	switch strings.ToUpper(method) {
	case "SUM":
		return callBuiltinOn(ev, "TOTAL", recv, args, line)
	case "MEAN":
		return callBuiltinOn(ev, "MEAN", recv, args, line)
	case "SORT":
		return callBuiltinOn(ev, "SORT", recv, args, line)
	case "SHAPE":
		return shapeOf(recv), nil
	case "NROWS", "LENGTH":
		return value.Long(int64(recv.Len())), nil
	case "FLATTEN":
		return flattenValue(recv), nil
	case "TOUPPER":
		if recv.Kind != value.KindString {
			return value.Undefined, xerrors.NewAt(xerrors.TypeMismatch, loc(line), "TOUPPER requires a STRING receiver")
		}
		return value.String(strings.ToUpper(recv.Str)), nil
	case "TOLOWER":
		if recv.Kind != value.KindString {
			return value.Undefined, xerrors.NewAt(xerrors.TypeMismatch, loc(line), "TOLOWER requires a STRING receiver")
		}
		return value.String(strings.ToLower(recv.Str)), nil
	case "TRIM":
		if recv.Kind != value.KindString {
			return value.Undefined, xerrors.NewAt(xerrors.TypeMismatch, loc(line), "TRIM requires a STRING receiver")
		}
		return value.String(strings.TrimSpace(recv.Str)), nil
	case "CONTAINS":
		if len(args) < 1 {
			return value.Undefined, xerrors.NewAt(xerrors.InvalidArgument, loc(line), "CONTAINS requires an argument")
		}
		return containsMethod(recv, args[0]), nil
	default:
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(line), "no method %s for a %s receiver", method, recv.Kind)
	}
}

func shapeOf(v value.Value) value.Value {
	switch v.Kind {
	case value.KindArray:
		return value.Array([]float64{float64(len(v.Data))})
	case value.KindMultiDim:
		out := make([]float64, len(v.Shape))
		for i, s := range v.Shape {
			out[i] = float64(s)
		}
		return value.Array(out)
	case value.KindNestedArray:
		return value.Array([]float64{float64(len(v.Nested))})
	default:
		return value.Array([]float64{1})
	}
}

func flattenValue(v value.Value) value.Value {
	switch v.Kind {
	case value.KindArray:
		return v
	case value.KindMultiDim:
		return value.Array(append([]float64(nil), v.Data...))
	case value.KindNestedArray:
		var out []float64
		for _, e := range v.Nested {
			f := flattenValue(e)
			if f.Kind == value.KindArray {
				out = append(out, f.Data...)
			} else if f.IsNumeric() {
				out = append(out, f.Num)
			}
		}
		return value.Array(out)
	default:
		return v
	}
}

func containsMethod(recv, needle value.Value) value.Value {
	switch recv.Kind {
	case value.KindString:
		return boolVal(strings.Contains(recv.Str, needle.Str))
	case value.KindArray, value.KindMultiDim:
		for _, x := range recv.Data {
			if x == needle.ToDouble() {
				return boolVal(true)
			}
		}
		return boolVal(false)
	case value.KindNestedArray:
		for _, e := range recv.Nested {
			if e.Equal(needle) {
				return boolVal(true)
			}
		}
		return boolVal(false)
	default:
		return boolVal(false)
	}
}

func boolVal(b bool) value.Value {
	if b {
		return value.Long(1)
	}
	return value.Long(0)
}
