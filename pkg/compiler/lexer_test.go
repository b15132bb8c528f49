package compiler

import "testing"

func lexAll(t *testing.T, src string, cfg Config) []Token {
	t.Helper()
	toks, err := Lex(src, "test.plike", cfg)
	if err != nil {
		t.Fatalf("Lex(%q) error: %v", src, err)
	}
	return toks
}

func TestLexKeywords(t *testing.T) {
	toks := lexAll(t, "function procedure var begin end if then else endif", DefaultConfig())
	want := []TokenType{FUNCTION, PROCEDURE, VAR, BEGIN, END, IF, THEN, ELSE, ENDIF, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestLexInOutFusion(t *testing.T) {
	toks := lexAll(t, "in out x", DefaultConfig())
	if toks[0].Type != INOUT {
		t.Fatalf("expected INOUT fusion, got %s", toks[0].Type)
	}
	if toks[1].Type != IDENTIFIER || toks[1].Lexeme != "x" {
		t.Fatalf("expected identifier x after fused INOUT, got %v", toks[1])
	}
}

func TestLexDottedOperators(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Operators = OpStyleDotted
	toks := lexAll(t, "a .and. b .eq. c", cfg)
	want := []TokenType{IDENTIFIER, AND, IDENTIFIER, EQ, IDENTIFIER, EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestLexDottedOperatorsFallBackToDot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Operators = OpStyleDotted
	toks := lexAll(t, "a.b", cfg)
	want := []TokenType{IDENTIFIER, DOT, IDENTIFIER, EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestLexDerefVsMultiply(t *testing.T) {
	toks := lexAll(t, "x := *p; y := x * 2;", DefaultConfig())
	// x ASSIGN DEREF p SEMI y ASSIGN x MULTIPLY 2 SEMI EOF
	if toks[2].Type != DEREF {
		t.Errorf("expected DEREF after ':=', got %s", toks[2].Type)
	}
	if toks[8].Type != MULTIPLY {
		t.Errorf("expected MULTIPLY between two operands, got %s", toks[8].Type)
	}
}

func TestLexAddrOfVsBitand(t *testing.T) {
	toks := lexAll(t, "call(&x); y := a & b;", DefaultConfig())
	if toks[2].Type != ADDR_OF {
		t.Errorf("expected ADDR_OF after '(', got %s", toks[2].Type)
	}
	var bitand TokenType
	for _, tok := range toks {
		if tok.Lexeme == "&" {
			bitand = tok.Type
		}
	}
	if bitand != BITAND {
		t.Errorf("unexpected classification for second '&': %s", bitand)
	}
}

func TestLexAssignmentStyles(t *testing.T) {
	colonCfg := DefaultConfig()
	toks := lexAll(t, "x := 1", colonCfg)
	if toks[1].Type != ASSIGN || toks[1].Lexeme != ":=" {
		t.Fatalf("expected ':=' assign, got %v", toks[1])
	}

	eqCfg := DefaultConfig()
	eqCfg.Assignment = AssignEquals
	toks = lexAll(t, "x = 1", eqCfg)
	if toks[1].Type != ASSIGN || toks[1].Lexeme != "=" {
		t.Fatalf("expected '=' assign, got %v", toks[1])
	}
}

func TestLexNumberBases(t *testing.T) {
	toks := lexAll(t, "0x1F 0o17 0b101 3.14 3. 2f", DefaultConfig())
	for i := 0; i < 6; i++ {
		if toks[i].Type != NUMBER {
			t.Errorf("token %d: got %s, want NUMBER", i, toks[i].Type)
		}
	}
}

func TestClassifyNumber(t *testing.T) {
	cases := []struct {
		lexeme        string
		wantReal      bool
		wantEmptyDot  bool
	}{
		{"42", false, false},
		{"3.14", true, false},
		{"3.", true, true},
		{"2f", true, false},
		{"0x1F", false, false},
		{"0o17", false, false},
		{"0b101", false, false},
	}
	for _, c := range cases {
		gotReal, gotEmpty := classifyNumber(c.lexeme)
		if gotReal != c.wantReal || gotEmpty != c.wantEmptyDot {
			t.Errorf("classifyNumber(%q) = (%v, %v), want (%v, %v)", c.lexeme, gotReal, gotEmpty, c.wantReal, c.wantEmptyDot)
		}
	}
}

func TestLexDimensionHintIsIdentifier(t *testing.T) {
	toks := lexAll(t, "2d", DefaultConfig())
	if toks[0].Type != IDENTIFIER || toks[0].Lexeme != "2d" {
		t.Fatalf("expected '2d' to lex as an identifier, got %v", toks[0])
	}
}

func TestLexStringLiteral(t *testing.T) {
	toks := lexAll(t, `"hello\n"`, DefaultConfig())
	if toks[0].Type != STRING {
		t.Fatalf("expected STRING, got %s", toks[0].Type)
	}
	if toks[0].Lexeme != "hello\n" {
		t.Fatalf("got %q, want %q", toks[0].Lexeme, "hello\n")
	}
}

func TestLexComments(t *testing.T) {
	toks := lexAll(t, "x // trailing comment\n/* block\ncomment */ y", DefaultConfig())
	want := []TokenType{IDENTIFIER, IDENTIFIER, EOF}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestLexUnterminatedStringIsError(t *testing.T) {
	_, err := Lex("\"unterminated", "test.plike", DefaultConfig())
	if err == nil {
		t.Fatal("expected an error for an unterminated string literal")
	}
}
