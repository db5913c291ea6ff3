package parser

import (
	"strings"
	"testing"

	"github.com/kr/pretty"

	"xdl/internal/lexer"
)

func parse(t *testing.T, src string) *Program {
	t.Helper()
	toks := lexer.NewScanner(src).ScanTokens()
	p := NewParser(toks)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse errors: %v\n%s", p.Errors, pretty.Sprint(prog))
	}
	return prog
}

func TestParseAssignmentAndArithmetic(t *testing.T) {
	prog := parse(t, "x = findgen(5) * 2.0 + 1.0 & print, x")
	if len(prog.Stmts) != 2 {
		t.Fatalf("got %d stmts: %# v", len(prog.Stmts), pretty.Formatter(prog))
	}
	assign, ok := prog.Stmts[0].(*Assignment)
	if !ok {
		t.Fatalf("stmt 0 = %T, want *Assignment", prog.Stmts[0])
	}
	bin, ok := assign.Value.(*Binary)
	if !ok || bin.Op != "+" {
		t.Fatalf("value = %#v", assign.Value)
	}
	call, ok := prog.Stmts[1].(*ProcedureCall)
	if !ok || !strings.EqualFold(call.Name, "print") {
		t.Fatalf("stmt 1 = %#v", prog.Stmts[1])
	}
}

func TestParseColumnMajorIndex(t *testing.T) {
	prog := parse(t, "a = reform(findgen(24), 2, 3, 4) & print, a[1, 2, 3]")
	call := prog.Stmts[1].(*ProcedureCall)
	ref, ok := call.Args[0].(*ArrayRef)
	if !ok || len(ref.Indices) != 3 {
		t.Fatalf("got %#v", call.Args[0])
	}
}

func TestParseForLoopWithStepAndBreak(t *testing.T) {
	src := "s = 0\nfor i = 0, 10, 2 do begin\ns = s + i\nif i eq 6 then break\nendfor\nprint, s"
	prog := parse(t, src)
	forStmt, ok := prog.Stmts[1].(*For)
	if !ok {
		t.Fatalf("got %T", prog.Stmts[1])
	}
	if forStmt.Var != "i" || forStmt.Step == nil {
		t.Fatalf("got %#v", forStmt)
	}
	if len(forStmt.Body) != 2 {
		t.Fatalf("body = %#v", forStmt.Body)
	}
	ifStmt, ok := forStmt.Body[1].(*If)
	if !ok {
		t.Fatalf("got %T", forStmt.Body[1])
	}
	if len(ifStmt.Then) != 1 {
		t.Fatalf("then = %#v", ifStmt.Then)
	}
	if _, ok := ifStmt.Then[0].(*Break); !ok {
		t.Fatalf("then[0] = %#v", ifStmt.Then[0])
	}
}

func TestParseSingleLineForNoBegin(t *testing.T) {
	prog := parse(t, "for i = 0, 9 do print, i\nprint, 'done'")
	forStmt := prog.Stmts[0].(*For)
	if len(forStmt.Body) != 1 {
		t.Fatalf("body = %#v", forStmt.Body)
	}
	if _, ok := prog.Stmts[1].(*ProcedureCall); !ok {
		t.Fatalf("stmt 1 leaked into for body: %#v", prog.Stmts[1])
	}
}

func TestParseMethodCallAndDataframe(t *testing.T) {
	prog := parse(t, "df = xdldataframe_read_csv('t.csv')\nprint, df->nrows()\nprint, df->column('b')")
	call := prog.Stmts[1].(*ProcedureCall).Args[0].(*MethodCall)
	if call.Method != "NROWS" {
		t.Fatalf("got %#v", call)
	}
	call2 := prog.Stmts[2].(*ProcedureCall).Args[0].(*MethodCall)
	if call2.Method != "COLUMN" || len(call2.Args) != 1 {
		t.Fatalf("got %#v", call2)
	}
}

func TestParseKeywordAndFlagArgs(t *testing.T) {
	prog := parse(t, "print, x, WIDTH=80, /QUIET")
	call := prog.Stmts[0].(*ProcedureCall)
	if len(call.Keywords) != 2 {
		t.Fatalf("got %#v", call.Keywords)
	}
	if call.Keywords[0].Name != "WIDTH" {
		t.Fatalf("got %#v", call.Keywords[0])
	}
	if call.Keywords[1].Name != "QUIET" {
		t.Fatalf("got %#v", call.Keywords[1])
	}
}

func TestParseObjNewAndMethodDispatch(t *testing.T) {
	prog := parse(t, "o = OBJ_NEW('Widget', 1, 2)\nr = o->compute()")
	assign := prog.Stmts[0].(*Assignment)
	if _, ok := assign.Value.(*ObjectNew); !ok {
		t.Fatalf("got %#v", assign.Value)
	}
}

func TestParseWildcardAndRangeIndex(t *testing.T) {
	prog := parse(t, "y = a[*, 1:3, 0:5:2]")
	assign := prog.Stmts[0].(*Assignment)
	ref := assign.Value.(*ArrayRef)
	if len(ref.Indices) != 3 {
		t.Fatalf("got %#v", ref.Indices)
	}
	if !ref.Indices[0].IsAll {
		t.Fatalf("slot 0 = %#v", ref.Indices[0])
	}
	if !ref.Indices[1].IsRange || ref.Indices[1].Step != nil {
		t.Fatalf("slot 1 = %#v", ref.Indices[1])
	}
	if !ref.Indices[2].IsRange || ref.Indices[2].Step == nil {
		t.Fatalf("slot 2 = %#v", ref.Indices[2])
	}
}

func TestParseUnterminatedParseErrorDoesNotPanic(t *testing.T) {
	toks := lexer.NewScanner("x = (1 + 2").ScanTokens()
	p := NewParser(toks)
	prog := p.Parse()
	if len(p.Errors) == 0 {
		t.Fatal("expected a parse error for unterminated paren")
	}
	_ = prog
}
