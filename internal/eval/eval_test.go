package eval

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdl/internal/context"
	"xdl/internal/lexer"
	"xdl/internal/parser"
)

// run parses and executes src, returning everything written to PRINT/
// auto-print output with trailing whitespace trimmed.
func run(t *testing.T, src string) string {
	t.Helper()
	tokens := lexer.NewScanner(src).ScanTokens()
	p := parser.NewParser(tokens)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}
	var buf bytes.Buffer
	ev := New(context.New(), &buf)
	if err := ev.Run(prog); err != nil {
		t.Fatalf("run error: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	tokens := lexer.NewScanner(src).ScanTokens()
	p := parser.NewParser(tokens)
	prog := p.Parse()
	if len(p.Errors) > 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}
	var buf bytes.Buffer
	ev := New(context.New(), &buf)
	return ev.Run(prog)
}

// TestFindgenArithmeticScenario is spec.md §8's literal scenario 1.
func TestFindgenArithmeticScenario(t *testing.T) {
	out := run(t, `x = FINDGEN(5) * 2.0 + 1.0
print, x`)
	if out != "1.0 3.0 5.0 7.0 9.0" {
		t.Fatalf("got %q", out)
	}
}

// TestColumnMajorIndexingScenario is spec.md §8's literal scenario 2.
func TestColumnMajorIndexingScenario(t *testing.T) {
	out := run(t, `a = REFORM(FINDGEN(24), 2, 3, 4)
print, a[1,2,3]`)
	if out != "23.0" {
		t.Fatalf("got %q", out)
	}
}

// TestForLoopBreakScenario is spec.md §8's literal scenario 3.
func TestForLoopBreakScenario(t *testing.T) {
	out := run(t, `s = 0
for i=0,10,2 do begin
  s = s + i
  if i eq 6 then break
endfor
print, s`)
	if out != "12" {
		t.Fatalf("got %q", out)
	}
}

func TestWhileLoopAndContinue(t *testing.T) {
	out := run(t, `i = 0
total = 0
while i lt 10 do begin
  i = i + 1
  if i mod 2 eq 0 then continue
  total = total + i
endwhile
print, total`)
	// 1+3+5+7+9 = 25
	if out != "25" {
		t.Fatalf("got %q", out)
	}
}

func TestRepeatUntil(t *testing.T) {
	out := run(t, `n = 0
repeat n = n + 1 until n ge 3
print, n`)
	if out != "3" {
		t.Fatalf("got %q", out)
	}
}

func TestIfElseAndStringConcat(t *testing.T) {
	out := run(t, `a = 'foo'
b = 'bar'
if strlen(a) eq 3 then print, a + b else print, 'no'`)
	if out != "foobar" {
		t.Fatalf("got %q", out)
	}
}

func TestFunctionDefAndCall(t *testing.T) {
	out := run(t, `function square, x
  return, x * x
endfunction
print, square(7)`)
	if out != "49" {
		t.Fatalf("got %q", out)
	}
}

func TestProcedureDefAndCall(t *testing.T) {
	out := run(t, `pro greet, name
  print, 'hi ' + name
endpro
greet, 'world'`)
	if out != "hi world" {
		t.Fatalf("got %q", out)
	}
}

func TestArrayIndexAssignment(t *testing.T) {
	out := run(t, `a = FINDGEN(5)
a[2] = 99.0
print, a`)
	if out != "0.0 1.0 99.0 3.0 4.0" {
		t.Fatalf("got %q", out)
	}
}

func TestMultiDimSliceAssignment(t *testing.T) {
	out := run(t, `a = REFORM(FINDGEN(6), 2, 3)
a[*, 1] = [100.0, 200.0]
print, a[0,1]
print, a[1,1]`)
	if out != "100.0\n200.0" {
		t.Fatalf("got %q", out)
	}
}

func TestNegativeIndexWrap(t *testing.T) {
	out := run(t, `a = FINDGEN(5)
print, a[-1]`)
	if out != "4.0" {
		t.Fatalf("got %q", out)
	}
}

func TestScalarDivisionByZeroErrors(t *testing.T) {
	err := runErr(t, `x = 1.0 / 0.0
print, x`)
	if err == nil {
		t.Fatal("expected an error for scalar division by zero")
	}
}

func TestArrayDivisionByZeroYieldsNaN(t *testing.T) {
	out := run(t, `a = [1.0, 2.0] / [0.0, 2.0]
print, a`)
	if out != "NaN 1.0" {
		t.Fatalf("got %q", out)
	}
}

func TestStructFieldAccessViaDataFrameRow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := `df = XDLDATAFRAME_READ_CSV('` + path + `')
r = df->row(0)
print, r.a + r.b`
	out := run(t, src)
	if out != "3.0" {
		t.Fatalf("got %q", out)
	}
}

func TestTernary(t *testing.T) {
	out := run(t, `x = 5
print, x gt 3 ? 'big' : 'small'`)
	if out != "big" {
		t.Fatalf("got %q", out)
	}
}

func TestSystemVariable(t *testing.T) {
	out := run(t, `print, !PI gt 3.14 and !PI lt 3.15`)
	if out != "1" {
		t.Fatalf("got %q", out)
	}
}
