package lexer

import "testing"

func tokenTypes(t *testing.T, toks []Token) []TokenType {
	t.Helper()
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeSimpleCall(t *testing.T) {
	toks, err := Tokenize("(+ 1 2)")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	want := []TokenType{LPAREN, IDENT, INTEGER, INTEGER, RPAREN, EOF}
	got := tokenTypes(t, toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeDottedPair(t *testing.T) {
	toks, err := Tokenize("(a . b)")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	want := []TokenType{LPAREN, IDENT, DOT, IDENT, RPAREN, EOF}
	got := tokenTypes(t, toks)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeQuoteShorthand(t *testing.T) {
	toks, err := Tokenize("'x")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	want := []TokenType{QUOTE, IDENT, EOF}
	got := tokenTypes(t, toks)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeVectorsAndUniformVectors(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want TokenType
	}{
		{"#(1 2)", VECOPEN},
		{"#s64(1 2)", S64OPEN},
		{"#f64(1.0 2.0)", F64OPEN},
	} {
		toks, err := Tokenize(tc.src)
		if err != nil {
			t.Fatalf("Tokenize(%q) returned error: %v", tc.src, err)
		}
		if toks[0].Type != tc.want {
			t.Errorf("Tokenize(%q)[0] = %v, want %v", tc.src, toks[0].Type, tc.want)
		}
	}
}

func TestTokenizeCharLiterals(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want string
	}{
		{`#\a`, "a"},
		{`#\space`, " "},
		{`#\newline`, "\n"},
		{`#\SPACE`, " "},
	} {
		toks, err := Tokenize(tc.src)
		if err != nil {
			t.Fatalf("Tokenize(%q) returned error: %v", tc.src, err)
		}
		if toks[0].Type != CHAR || toks[0].Literal != tc.want {
			t.Errorf("Tokenize(%q) = %v %q, want CHAR %q", tc.src, toks[0].Type, toks[0].Literal, tc.want)
		}
	}
}

func TestTokenizeBooleans(t *testing.T) {
	toks, err := Tokenize("#t #f")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if toks[0].Literal != "#t" || toks[1].Literal != "#f" {
		t.Errorf("got %q %q, want #t #f", toks[0].Literal, toks[1].Literal)
	}
}

func TestTokenizeStringNoEscapes(t *testing.T) {
	toks, err := Tokenize(`"hello\nworld"`)
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	// No escape processing: backslash-n passes through literally.
	if toks[0].Type != STRING || toks[0].Literal != `hello\nworld` {
		t.Errorf("got %v %q, want STRING %q", toks[0].Type, toks[0].Literal, `hello\nworld`)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"hello`)
	if err == nil {
		t.Fatal("expected LexError for unterminated string")
	}
}

func TestTokenizeNegativeAndFloat(t *testing.T) {
	toks, err := Tokenize("-5 3.14 -0.5 +nan.0")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	want := []struct {
		typ TokenType
		lit string
	}{
		{INTEGER, "-5"},
		{FLOAT, "3.14"},
		{FLOAT, "-0.5"},
		{NAN, "+nan.0"},
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Literal != w.lit {
			t.Errorf("token %d: got %v %q, want %v %q", i, toks[i].Type, toks[i].Literal, w.typ, w.lit)
		}
	}
}

func TestTokenizeSignedIdentifierNotNumber(t *testing.T) {
	toks, err := Tokenize("(+ -)")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if toks[1].Type != IDENT || toks[1].Literal != "+" {
		t.Errorf("got %v %q, want IDENT +", toks[1].Type, toks[1].Literal)
	}
	if toks[2].Type != IDENT || toks[2].Literal != "-" {
		t.Errorf("got %v %q, want IDENT -", toks[2].Type, toks[2].Literal)
	}
}

func TestTokenizeComments(t *testing.T) {
	toks, err := Tokenize("; comment\n(+ 1 2) ; trailing\n")
	if err != nil {
		t.Fatalf("Tokenize returned error: %v", err)
	}
	if toks[0].Type != LPAREN {
		t.Errorf("comments should be skipped entirely, got %v first", toks[0].Type)
	}
}

func TestTokenizeIllegalCharacter(t *testing.T) {
	_, err := Tokenize("(+ 1 @)")
	if err == nil {
		t.Fatal("expected LexError for illegal character @")
	}
}

func TestTokenizeMalformedNumber(t *testing.T) {
	_, err := Tokenize("1abc")
	if err == nil {
		t.Fatal("expected LexError: digit-led token must parse as a number")
	}
}
