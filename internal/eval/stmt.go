package eval

import (
	"fmt"
	"strings"

	xerrors "xdl/internal/errors"
	"xdl/internal/parser"
	"xdl/internal/stdlib"
	"xdl/internal/value"
)

func (ev *Evaluator) execStmt(st parser.Stmt) error {
	ev.executed++
	if ev.executed > maxStatements {
		return xerrors.New(xerrors.RuntimeErr, "statement execution count exceeded the safety bound (%d)", maxStatements)
	}
	switch s := st.(type) {
	case *parser.Assignment:
		return ev.execAssignment(s)
	case *parser.ExpressionStmt:
		return ev.execExpressionStmt(s)
	case *parser.ProcedureCall:
		return ev.execProcedureCall(s)
	case *parser.FunctionDef:
		ev.Ctx.Functions[strings.ToUpper(s.Name)] = s
		return nil
	case *parser.ProcedureDef:
		ev.Ctx.Procedures[strings.ToUpper(s.Name)] = s
		return nil
	case *parser.If:
		return ev.execIf(s)
	case *parser.For:
		return ev.execFor(s)
	case *parser.Foreach:
		return ev.execForeach(s)
	case *parser.While:
		return ev.execWhile(s)
	case *parser.Repeat:
		return ev.execRepeat(s)
	case *parser.Return:
		var v value.Value
		if s.Value != nil {
			var err error
			v, err = ev.EvalExpr(s.Value)
			if err != nil {
				return err
			}
		}
		return xerrors.ReturnSignal{Value: v}
	case *parser.Break:
		return xerrors.BreakSignal{}
	case *parser.Continue:
		return xerrors.ContinueSignal{}
	case *parser.Common, *parser.CompileOpt, *parser.Label:
		// Accepted and ignored: COMMON/COMPILE_OPT/labels carry no runtime
		// effect in this interpreter (spec.md §4.6).
		return nil
	case *parser.Goto:
		return xerrors.NewAt(xerrors.NotImplemented, loc(0), "GOTO is not implemented")
	default:
		return xerrors.New(xerrors.RuntimeErr, "unknown statement node %T", st)
	}
}

func (ev *Evaluator) execAssignment(a *parser.Assignment) error {
	v, err := ev.EvalExpr(a.Value)
	if err != nil {
		return err
	}
	switch target := a.Target.(type) {
	case *parser.Variable:
		ev.Ctx.SetVariable(target.Name, v)
		return nil
	case *parser.ArrayRef:
		return ev.execIndexedAssign(target, v)
	default:
		return xerrors.NewAt(xerrors.RuntimeErr, loc(a.Line), "invalid assignment target")
	}
}

// execExpressionStmt prints a defined expression result, matching IDL's
// "bare expression at statement position auto-prints" convention (spec.md
// §4.6).
func (ev *Evaluator) execExpressionStmt(e *parser.ExpressionStmt) error {
	v, err := ev.EvalExpr(e.Expr)
	if err != nil {
		return err
	}
	if v.Kind != value.KindUndefined {
		fmt.Fprintln(ev.Out, v.ToStringRepr())
	}
	return nil
}

func (ev *Evaluator) execPrint(p *parser.ProcedureCall) error {
	parts := make([]string, 0, len(p.Args))
	for _, a := range p.Args {
		v, err := ev.EvalExpr(a)
		if err != nil {
			return err
		}
		parts = append(parts, v.ToStringRepr())
	}
	fmt.Fprintln(ev.Out, strings.Join(parts, " "))
	return nil
}

// execProcedureCall dispatches PRINT/EXIT as fixed builtins, then
// user-defined procedures, then the stdlib procedure table — the same
// user-before-stdlib precedence as function calls (DESIGN.md).
func (ev *Evaluator) execProcedureCall(p *parser.ProcedureCall) error {
	name := strings.ToUpper(p.Name)
	switch name {
	case "PRINT":
		return ev.execPrint(p)
	case "EXIT":
		code := 0
		if len(p.Args) > 0 {
			v, err := ev.EvalExpr(p.Args[0])
			if err != nil {
				return err
			}
			code = int(v.ToLong())
		}
		return ExitSignal{Code: code}
	case "CATCH":
		// Accepted as a no-op: structured error recovery is out of scope
		// (spec.md §7).
		return nil
	}
	args := make([]value.Value, len(p.Args))
	for i, a := range p.Args {
		v, err := ev.EvalExpr(a)
		if err != nil {
			return err
		}
		args[i] = v
	}
	kwargs, err := ev.evalKeywords(p.Keywords)
	if err != nil {
		return err
	}
	if raw, ok := ev.Ctx.Procedures[name]; ok {
		def, ok := raw.(*parser.ProcedureDef)
		if !ok {
			return xerrors.NewAt(xerrors.RuntimeErr, loc(p.Line), "malformed procedure definition %s", name)
		}
		_, err := ev.callUserProcedure(def, args, p.Line)
		return err
	}
	if fn, ok := stdlib.Builtins[name]; ok {
		_, err := fn(ev.Ctx, args, kwargs)
		return withLoc(err, p.Line)
	}
	return xerrors.NewAt(xerrors.RuntimeErr, loc(p.Line), "undefined procedure %s", name)
}

func (ev *Evaluator) execBlock(stmts []parser.Stmt) error {
	for _, st := range stmts {
		if err := ev.execStmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) execIf(s *parser.If) error {
	c, err := ev.EvalExpr(s.Cond)
	if err != nil {
		return err
	}
	if !c.IsZero() {
		return ev.execBlock(s.Then)
	}
	return ev.execBlock(s.Else)
}

func (ev *Evaluator) execFor(s *parser.For) error {
	startV, err := ev.EvalExpr(s.Start)
	if err != nil {
		return err
	}
	endV, err := ev.EvalExpr(s.End)
	if err != nil {
		return err
	}
	step := int64(1)
	if s.Step != nil {
		stepV, err := ev.EvalExpr(s.Step)
		if err != nil {
			return err
		}
		step = stepV.ToLong()
	}
	if step == 0 {
		return xerrors.NewAt(xerrors.InvalidArgument, loc(s.Line), "FOR step cannot be 0")
	}
	start, end := startV.ToLong(), endV.ToLong()
	ev.Ctx.PushScope()
	defer ev.Ctx.PopScope()
	for i := start; (step > 0 && i <= end) || (step < 0 && i >= end); i += step {
		ev.Ctx.SetLocal(s.Var, value.Long(i))
		err := ev.execBlock(s.Body)
		if err == nil {
			continue
		}
		if _, ok := err.(xerrors.BreakSignal); ok {
			break
		}
		if _, ok := err.(xerrors.ContinueSignal); ok {
			continue
		}
		return err
	}
	return nil
}

func (ev *Evaluator) execForeach(s *parser.Foreach) error {
	iterV, err := ev.EvalExpr(s.Iterable)
	if err != nil {
		return err
	}
	var elems []value.Value
	switch iterV.Kind {
	case value.KindArray, value.KindMultiDim:
		elems = make([]value.Value, len(iterV.Data))
		for i, f := range iterV.Data {
			elems[i] = value.Double(f)
		}
	case value.KindNestedArray:
		elems = iterV.Nested
	default:
		return xerrors.NewAt(xerrors.TypeMismatch, loc(s.Line), "FOREACH requires an array-like iterable, got %s", iterV.Kind)
	}
	ev.Ctx.PushScope()
	defer ev.Ctx.PopScope()
	for i, e := range elems {
		ev.Ctx.SetLocal(s.Var, e)
		if s.Index != "" {
			ev.Ctx.SetLocal(s.Index, value.Long(int64(i)))
		}
		err := ev.execBlock(s.Body)
		if err == nil {
			continue
		}
		if _, ok := err.(xerrors.BreakSignal); ok {
			break
		}
		if _, ok := err.(xerrors.ContinueSignal); ok {
			continue
		}
		return err
	}
	return nil
}

func (ev *Evaluator) execWhile(s *parser.While) error {
	ev.Ctx.PushScope()
	defer ev.Ctx.PopScope()
	for {
		c, err := ev.EvalExpr(s.Cond)
		if err != nil {
			return err
		}
		if c.IsZero() {
			break
		}
		err = ev.execBlock(s.Body)
		if err == nil {
			continue
		}
		if _, ok := err.(xerrors.BreakSignal); ok {
			break
		}
		if _, ok := err.(xerrors.ContinueSignal); ok {
			continue
		}
		return err
	}
	return nil
}

// execRepeat runs a do-while loop: the body always executes once before
// the condition is checked (spec.md §4.6's REPEAT...UNTIL semantics).
func (ev *Evaluator) execRepeat(s *parser.Repeat) error {
	ev.Ctx.PushScope()
	defer ev.Ctx.PopScope()
	for {
		err := ev.execBlock(s.Body)
		if err != nil {
			if _, ok := err.(xerrors.BreakSignal); ok {
				break
			}
			if _, ok := err.(xerrors.ContinueSignal); !ok {
				return err
			}
		}
		c, err := ev.EvalExpr(s.Cond)
		if err != nil {
			return err
		}
		if !c.IsZero() {
			break
		}
	}
	return nil
}
