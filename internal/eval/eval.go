// Package eval implements the tree-walking evaluator (spec.md §4.4) and the
// statement driver that walks a parsed Program (spec.md §4.6). Grounded on
// the teacher's bytecode VM's dispatch/call-frame structure
// (internal/vm/vm.go), adapted from instruction dispatch to a direct
// type-switch over *parser.Expr/*parser.Stmt nodes since XDL has no
// compile step between parser and execution.
package eval

import (
	"io"
	"math"
	"strconv"
	"strings"

	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/parser"
	"xdl/internal/value"
)

// maxStatements bounds total statement execution to diagnose runaway
// programs (spec.md §4.6).
const maxStatements = 50_000_000

// ExitSignal is raised by the EXIT procedure; it is not part of the
// language's Break/Continue/Return control-signal taxonomy (spec.md §7) —
// it is an interpreter-driver directive caught only by Run.
type ExitSignal struct{ Code int }

func (ExitSignal) Error() string { return "exit" }

// Evaluator threads a mutable Context through expression evaluation and
// statement execution, printing expression-statement results and PRINT
// output to Out (spec.md §4.6, §6).
type Evaluator struct {
	Ctx      *context.Context
	Out      io.Writer
	executed int
}

func New(ctx *context.Context, out io.Writer) *Evaluator {
	return &Evaluator{Ctx: ctx, Out: out}
}

// Run executes every top-level statement in order, surfacing the first
// error (spec.md §6: batch mode aborts the program). A Return/Break/
// Continue signal that escapes every enclosing construct is itself a
// runtime error at the top level (spec.md §4.6, §7).
func (ev *Evaluator) Run(prog *parser.Program) error {
	for _, st := range prog.Stmts {
		err := ev.execStmt(st)
		if err == nil {
			continue
		}
		if _, ok := err.(ExitSignal); ok {
			return err
		}
		switch err.(type) {
		case xerrors.ReturnSignal:
			return xerrors.New(xerrors.RuntimeErr, `unhandled RETURN`)
		case xerrors.BreakSignal, xerrors.ContinueSignal:
			return xerrors.New(xerrors.RuntimeErr, `unhandled BREAK/CONTINUE`)
		default:
			return err
		}
	}
	return nil
}

func loc(line int) xerrors.Location { return xerrors.Location{Line: line} }

// withLoc tags an *XdlError with a source line if it doesn't already carry
// one more specific. Non-XdlError values (including nil) pass through.
func withLoc(err error, line int) error {
	if err == nil {
		return nil
	}
	if xe, ok := err.(*xerrors.XdlError); ok {
		if xe.Loc.Line == 0 {
			xe.Loc = loc(line)
		}
		return xe
	}
	return err
}

// systemVariables is the fixed table backing `!PI`, `!E`, … (spec.md §4.4).
var systemVariables = map[string]float64{
	"PI":    math.Pi,
	"E":     math.E,
	"DPI":   math.Pi,
	"DTOR":  math.Pi / 180,
	"RADEG": 180 / math.Pi,
}

// EvalExpr evaluates expr against the evaluator's context.
func (ev *Evaluator) EvalExpr(expr parser.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *parser.Literal:
		return ev.evalLiteral(e)
	case *parser.Variable:
		return ev.evalVariable(e)
	case *parser.SystemVariable:
		f, ok := systemVariables[strings.ToUpper(e.Name)]
		if !ok {
			return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(e.Line), "unknown system variable !%s", e.Name)
		}
		return value.Double(f), nil
	case *parser.Binary:
		return ev.evalBinary(e)
	case *parser.Unary:
		return ev.evalUnary(e)
	case *parser.Ternary:
		return ev.evalTernary(e)
	case *parser.FunctionCall:
		return ev.evalFunctionCall(e)
	case *parser.ArrayDef:
		return ev.evalArrayDef(e)
	case *parser.ArrayRef:
		return ev.evalArrayRef(e)
	case *parser.StructRef:
		return ev.evalStructRef(e)
	case *parser.MethodCall:
		return ev.evalMethodCall(e)
	case *parser.ObjectNew:
		return ev.evalObjectNew(e)
	default:
		return value.Undefined, xerrors.New(xerrors.RuntimeErr, "unknown expression node %T", expr)
	}
}

func (ev *Evaluator) evalLiteral(l *parser.Literal) (value.Value, error) {
	switch l.Kind {
	case "int":
		n, err := strconv.ParseInt(l.Text, 10, 64)
		if err != nil {
			return value.Undefined, xerrors.NewAt(xerrors.ParseError, loc(l.Line), "invalid integer literal %q", l.Text)
		}
		return value.Long(n), nil
	case "float":
		text := strings.NewReplacer("D", "E", "d", "e").Replace(l.Text)
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return value.Undefined, xerrors.NewAt(xerrors.ParseError, loc(l.Line), "invalid float literal %q", l.Text)
		}
		return value.Double(f), nil
	case "string":
		return value.String(l.Text), nil
	default:
		return value.Undefined, xerrors.New(xerrors.RuntimeErr, "unknown literal kind %q", l.Kind)
	}
}

// evalVariable special-cases SELF to the active method receiver (spec.md
// §4.4, §9 "Self and method dispatch").
func (ev *Evaluator) evalVariable(v *parser.Variable) (value.Value, error) {
	if strings.EqualFold(v.Name, "SELF") {
		id, ok := ev.Ctx.SelfID()
		if !ok {
			return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(v.Line), "SELF referenced outside a method body")
		}
		return value.Object(id), nil
	}
	val, ok := ev.Ctx.GetVariable(v.Name)
	if !ok {
		return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(v.Line), "undefined variable %s", v.Name)
	}
	return val, nil
}

func (ev *Evaluator) evalTernary(t *parser.Ternary) (value.Value, error) {
	c, err := ev.EvalExpr(t.Cond)
	if err != nil {
		return value.Undefined, err
	}
	if !c.IsZero() {
		return ev.EvalExpr(t.Then)
	}
	return ev.EvalExpr(t.Else)
}

func (ev *Evaluator) evalArrayDef(a *parser.ArrayDef) (value.Value, error) {
	vals := make([]value.Value, len(a.Elements))
	for i, e := range a.Elements {
		v, err := ev.EvalExpr(e)
		if err != nil {
			return value.Undefined, err
		}
		vals[i] = v
	}
	allArrays := len(vals) > 0
	for _, v := range vals {
		if v.Kind != value.KindArray {
			allArrays = false
			break
		}
	}
	if allArrays {
		return value.NestedArray(vals), nil
	}
	data := make([]float64, len(vals))
	for i, v := range vals {
		data[i] = v.ToDouble()
	}
	return value.Array(data), nil
}

func (ev *Evaluator) evalStructRef(s *parser.StructRef) (value.Value, error) {
	recv, err := ev.EvalExpr(s.Object)
	if err != nil {
		return value.Undefined, err
	}
	switch recv.Kind {
	case value.KindStruct:
		v, ok := recv.Fields[strings.ToUpper(s.Field)]
		if !ok {
			return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(s.Line), "no such field %s", s.Field)
		}
		return v, nil
	case value.KindObject:
		obj, ok := ev.Ctx.Object(recv.ID)
		if !ok {
			return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(s.Line), "dangling object reference")
		}
		v, ok := obj.Fields[strings.ToUpper(s.Field)]
		if !ok {
			return value.Undefined, xerrors.NewAt(xerrors.RuntimeErr, loc(s.Line), "object has no field %s", s.Field)
		}
		return v, nil
	default:
		return value.Undefined, xerrors.NewAt(xerrors.TypeMismatch, loc(s.Line), "cannot access field %s on %s", s.Field, recv.Kind)
	}
}

func (ev *Evaluator) evalKeywords(kws []parser.KeywordArg) (map[string]value.Value, error) {
	if len(kws) == 0 {
		return nil, nil
	}
	out := make(map[string]value.Value, len(kws))
	for _, kw := range kws {
		v, err := ev.EvalExpr(kw.Value)
		if err != nil {
			return nil, err
		}
		out[strings.ToUpper(kw.Name)] = v
	}
	return out, nil
}
