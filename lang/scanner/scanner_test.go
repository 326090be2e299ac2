package scanner

import (
	"testing"

	"github.com/mna/vela/lang/token"
	"github.com/stretchr/testify/require"
)

func TestScanAll(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []token.Token
	}{
		{"empty", "", []token.Token{token.EOF}},
		{"ident and keywords", "let f = n -> n", []token.Token{
			token.LET, token.IDENT, token.ASSIGN, token.IDENT, token.ARROW, token.IDENT, token.EOF,
		}},
		{"numbers", "1 2.5 10", []token.Token{token.INT, token.FLOAT, token.INT, token.EOF}},
		{"operators", "== + - * / -> =", []token.Token{
			token.EQL, token.PLUS, token.MINUS, token.STAR, token.SLASH, token.ARROW, token.ASSIGN, token.EOF,
		}},
		{"delimiters", "(){}[];,", []token.Token{
			token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
			token.LBRACK, token.RBRACK, token.SEMI, token.COMMA, token.EOF,
		}},
		{"comment", "1 # trailing comment\n2", []token.Token{token.INT, token.INT, token.EOF}},
		{"string", `"hello\nworld"`, []token.Token{token.STRING, token.EOF}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lexemes, err := ScanAll([]byte(tc.src))
			require.NoError(t, err)
			got := make([]token.Token, len(lexemes))
			for i, lx := range lexemes {
				got[i] = lx.Tok
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestScanStringEscapes(t *testing.T) {
	lexemes, err := ScanAll([]byte(`"a\tb\"c"`))
	require.NoError(t, err)
	require.Equal(t, "a\tb\"c", lexemes[0].Lit)
}

func TestScanErrors(t *testing.T) {
	_, err := ScanAll([]byte(`"unterminated`))
	require.Error(t, err)

	_, err = ScanAll([]byte("1 $ 2"))
	require.Error(t, err)
}
