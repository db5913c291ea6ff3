package eval

import (
	"strings"

	xerrors "xdl/internal/errors"
	"xdl/internal/parser"
	"xdl/internal/stdlib"
	"xdl/internal/value"
)

// bindParams binds each routine parameter from args positionally, falling
// back to its default expression (if any) or Undefined, always declaring
// it fresh in the current (already-pushed) scope.
func (ev *Evaluator) bindParams(params []parser.Param, args []value.Value, line int) error {
	for i, p := range params {
		var v value.Value
		switch {
		case i < len(args):
			v = args[i]
		case p.Default != nil:
			dv, err := ev.EvalExpr(p.Default)
			if err != nil {
				return err
			}
			v = dv
		default:
			v = value.Undefined
		}
		ev.Ctx.SetLocal(p.Name, v)
	}
	return nil
}

// execBlockCatchReturn runs body in the current scope, converting a
// ReturnSignal into its carried value and treating an escaping
// Break/Continue as a runtime error (spec.md §7: those signals only make
// sense inside an enclosing loop).
func (ev *Evaluator) execBlockCatchReturn(body []parser.Stmt) (value.Value, error) {
	for _, st := range body {
		err := ev.execStmt(st)
		if err == nil {
			continue
		}
		switch sig := err.(type) {
		case xerrors.ReturnSignal:
			return sig.Value, nil
		case xerrors.BreakSignal, xerrors.ContinueSignal:
			return value.Undefined, xerrors.New(xerrors.RuntimeErr, "BREAK/CONTINUE used outside of a loop")
		default:
			return value.Undefined, err
		}
	}
	return value.Undefined, nil
}

func (ev *Evaluator) callUserFunction(def *parser.FunctionDef, args []value.Value, line int) (value.Value, error) {
	prevScope := ev.Ctx.PushFunctionScope()
	defer ev.Ctx.RestoreScope(prevScope)
	if err := ev.bindParams(def.Params, args, line); err != nil {
		return value.Undefined, err
	}
	return ev.execBlockCatchReturn(def.Body)
}

func (ev *Evaluator) callUserProcedure(def *parser.ProcedureDef, args []value.Value, line int) (value.Value, error) {
	prevScope := ev.Ctx.PushFunctionScope()
	defer ev.Ctx.RestoreScope(prevScope)
	if err := ev.bindParams(def.Params, args, line); err != nil {
		return value.Undefined, err
	}
	return ev.execBlockCatchReturn(def.Body)
}

// evalFunctionCall resolves name against user-defined functions before the
// stdlib table, reconciling spec.md §4.5 and §4.6's resolution-order
// wording (see DESIGN.md): a user routine shadows a builtin of the same
// name.
func (ev *Evaluator) evalFunctionCall(f *parser.FunctionCall) (value.Value, error) {
	args := make([]value.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := ev.EvalExpr(a)
		if err != nil {
			return value.Undefined, err
		}
		args[i] = v
	}
	kwargs, err := ev.evalKeywords(f.Keywords)
	if err != nil {
		return value.Undefined, err
	}
	name := strings.ToUpper(f.Name)
	if raw, ok := ev.Ctx.Functions[name]; ok {
		def, ok := raw.(*parser.FunctionDef)
		if !ok {
			return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(f.Line), "malformed function definition %s", name)
		}
		return ev.callUserFunction(def, args, f.Line)
	}
	if fn, ok := stdlib.Builtins[name]; ok {
		v, err := fn(ev.Ctx, args, kwargs)
		if err != nil {
			return value.Undefined, withLoc(err, f.Line)
		}
		return v, nil
	}
	return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(f.Line), "undefined function %s", name)
}

// evalObjectNew allocates an instance, then invokes its class's INIT
// method (if any) with SELF bound, following IDL's OBJ_NEW convention: a
// falsy scalar return means construction failed and the handle is
// discarded (spec.md §4.4).
func (ev *Evaluator) evalObjectNew(o *parser.ObjectNew) (value.Value, error) {
	classVal, err := ev.EvalExpr(o.ClassName)
	if err != nil {
		return value.Undefined, err
	}
	className := classVal.Str
	cls, ok := ev.Ctx.LookupClass(className)
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(o.Line), "unknown class %s", className)
	}
	_, id := ev.Ctx.NewObject(cls.Name)
	args := make([]value.Value, len(o.Args))
	for i, a := range o.Args {
		v, err := ev.EvalExpr(a)
		if err != nil {
			return value.Undefined, err
		}
		args[i] = v
	}
	raw, hasInit := cls.Methods["INIT"]
	if !hasInit {
		return value.Object(id), nil
	}
	_, params, body, ok := methodDef(raw)
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(o.Line), "malformed INIT method for class %s", className)
	}
	prevScope := ev.Ctx.PushFunctionScope()
	prevSelfID, hadSelf := ev.Ctx.BindSelf(id)
	ret, err := func() (value.Value, error) {
		if err := ev.bindParams(params, args, o.Line); err != nil {
			return value.Undefined, err
		}
		return ev.execBlockCatchReturn(body)
	}()
	ev.Ctx.RestoreScope(prevScope)
	ev.Ctx.RestoreSelf(prevSelfID, hadSelf)
	if err != nil {
		return value.Undefined, err
	}
	if ret.IsNumeric() && ret.IsZero() {
		return value.Undefined, nil
	}
	return value.Object(id), nil
}
