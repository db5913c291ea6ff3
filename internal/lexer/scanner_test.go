package lexer

import "testing"

func TestScanTokensBasic(t *testing.T) {
	src := "x = findgen(5) * 2.0 + 1.0 ; comment\nprint, x"
	toks := NewScanner(src).ScanTokens()
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []TokenType{
		TokenIdent, TokenAssign, TokenIdent, TokenLParen, TokenInteger, TokenRParen,
		TokenStar, TokenFloat, TokenPlus, TokenFloat,
		TokenIdent, TokenComma, TokenIdent, TokenEOF,
	}
	if len(types) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(types), len(want), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, types[i], want[i])
		}
	}
}

func TestScanWordOperatorsCaseInsensitive(t *testing.T) {
	toks := NewScanner("a eq b and c Ge d").ScanTokens()
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []TokenType{TokenIdent, TokenWordEQ, TokenIdent, TokenWordAND, TokenIdent, TokenWordGE, TokenIdent, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("got %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d: got %s want %s", i, types[i], want[i])
		}
	}
}

func TestSystemVariable(t *testing.T) {
	toks := NewScanner("x = !PI").ScanTokens()
	if toks[2].Type != TokenSysVar || toks[2].Lexeme != "!PI" {
		t.Fatalf("got %v", toks[2])
	}
}

func TestLineContinuation(t *testing.T) {
	toks := NewScanner("x = 1 + $\n2").ScanTokens()
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []TokenType{TokenIdent, TokenAssign, TokenInteger, TokenPlus, TokenInteger, TokenEOF}
	if len(types) != len(want) {
		t.Fatalf("got %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d: got %s want %s", i, types[i], want[i])
		}
	}
}

func TestUnknownByteProducesParseError(t *testing.T) {
	s := NewScanner("x = @")
	s.ScanTokens()
	if len(s.Errors) == 0 {
		t.Fatal("expected a ParseError for unknown byte")
	}
}

func TestDoubleExponentMarker(t *testing.T) {
	toks := NewScanner("1.5d3").ScanTokens()
	if toks[0].Type != TokenFloat || toks[0].Lexeme != "1.5d3" {
		t.Fatalf("got %v", toks[0])
	}
}
