package compiler

import "testing"

func TestTokenTypeString(t *testing.T) {
	cases := map[TokenType]string{
		FUNCTION: "FUNCTION",
		IF:       "IF",
		ASSIGN:   "ASSIGN",
		EOF:      "EOF",
	}
	for tt, want := range cases {
		if got := tt.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", tt, got, want)
		}
	}
}

func TestTokenTypeStringUnknown(t *testing.T) {
	unknown := TokenType(10000)
	if got := unknown.String(); got != "TokenType(10000)" {
		t.Errorf("got %q, want %q", got, "TokenType(10000)")
	}
}

func TestSourceLocationString(t *testing.T) {
	loc := SourceLocation{File: "a.plike", Line: 3, Column: 5}
	if got := loc.String(); got != "a.plike:3:5" {
		t.Errorf("got %q, want %q", got, "a.plike:3:5")
	}
}

func TestTokenString(t *testing.T) {
	tok := Token{Type: IDENTIFIER, Lexeme: "x", Location: SourceLocation{File: "a.plike", Line: 1, Column: 1}}
	s := tok.String()
	if s == "" {
		t.Fatal("Token.String() should not be empty")
	}
}
