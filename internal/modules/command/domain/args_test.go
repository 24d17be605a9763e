package domain_test

import (
	"errors"
	"reflect"
	"testing"

	"memestickers/internal/modules/command/domain"
)

func TestTokenize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "  generate   cats a ", want: []string{"generate", "cats", "a"}},
		{in: `generate cats a "hello world"`, want: []string{"generate", "cats", "a", "hello world"}},
		{in: `say 'it"s' "it's"`, want: []string{"say", `it"s`, "it's"}},
		{in: `a\ b c`, want: []string{"a b", "c"}},
		{in: `'a\b'`, want: []string{`a\b`}},
		{in: `x ""`, want: []string{"x", ""}},
		{in: `trailing\`, want: []string{`trailing\`}},
	}
	for _, tc := range cases {
		got, err := domain.Tokenize(tc.in)
		if err != nil {
			t.Fatalf("tokenize %q: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("tokenize %q: got %#v want %#v", tc.in, got, tc.want)
		}
	}
}

func TestTokenizeUnbalancedQuote(t *testing.T) {
	t.Parallel()
	if _, err := domain.Tokenize(`say "oops`); !errors.Is(err, domain.ErrUnbalancedQuote) {
		t.Fatalf("expected unbalanced quote, got %v", err)
	}
}

func TestQuoteIsReadBackByTokenize(t *testing.T) {
	t.Parallel()
	inputs := [][]string{
		{"generate", "cats", "a"},
		{"it's", `say "hi"`, `back\slash`, ""},
		{"tab\there", "new\nline"},
	}
	for _, tokens := range inputs {
		quoted := domain.Quote(tokens)
		got, err := domain.Tokenize(quoted)
		if err != nil {
			t.Fatalf("tokenize %q: %v", quoted, err)
		}
		if !reflect.DeepEqual(got, tokens) {
			t.Fatalf("quote %#v produced %q which reads back as %#v", tokens, quoted, got)
		}
	}
	if got := domain.Quote([]string{"generate", "cats"}); got != "generate cats" {
		t.Fatalf("plain words should stay unquoted: %q", got)
	}
}
