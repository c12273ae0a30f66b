package mapping

import (
	"errors"
	"testing"
)

func evalString(t *testing.T, exprText string, row []string) (string, error) {
	t.Helper()
	e, err := CompileExpr(exprText)
	if err != nil {
		t.Fatalf("CompileExpr(%q) error: %v", exprText, err)
	}
	v, err := e.Eval(row, nil)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Eval(%q) = %T, want string", exprText, v)
	}
	return s, nil
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		expr string
		row  []string
		want string
	}{
		{"literal only", "hello", []string{"a"}, "hello"},
		{"single column", "$1", []string{"a", "b"}, "a"},
		{"braced column", "${2}", []string{"a", "b"}, "b"},
		{"mixed", "Title: $1 ($2)", []string{"x", "y"}, "Title: x (y)"},
		{"dollar escape", "$$", []string{"a"}, "$"},
		{"dollar before digit", "$$5", []string{"a"}, "$5"},
		{"escape then reference", "$$${1}", []string{"9"}, "$9"},
		{"braced disambiguates", "${1}0", []string{"a"}, "a0"},
		{"multi-digit index", "$12", []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}, "12"},
		{"empty expression", "", []string{"a"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalString(t, tt.expr, tt.row)
			if err != nil {
				t.Fatalf("Eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvalSinglePass(t *testing.T) {
	// Substituted text is never re-interpolated.
	got, err := evalString(t, "$1", []string{"$2", "x"})
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if got != "$2" {
		t.Errorf("Eval = %q, want %q", got, "$2")
	}
}

func TestEvalColumnIndexError(t *testing.T) {
	tests := []struct {
		name string
		expr string
		row  []string
	}{
		{"zero index", "$0", []string{"a"}},
		{"beyond row length", "$3", []string{"a", "b"}},
		{"braced beyond row length", "${9}", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalString(t, tt.expr, tt.row)
			var cie *ColumnIndexError
			if !errors.As(err, &cie) {
				t.Fatalf("Eval error = %v, want *ColumnIndexError", err)
			}
		})
	}
}

func TestCompileExprErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"dollar before letter", "$x"},
		{"trailing dollar", "abc$"},
		{"unterminated brace", "${1"},
		{"non-numeric brace", "${a}"},
		{"index list without function", "${1,2}"},
		{"empty function name", "${1:}"},
		{"bad function name", "${1:9abc}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CompileExpr(tt.expr); err == nil {
				t.Errorf("CompileExpr(%q) succeeded, want error", tt.expr)
			}
		})
	}
}

func TestEvalFunc(t *testing.T) {
	call := func(name string, args []string) (any, error) {
		if name != "join" {
			return nil, errors.New("unknown function")
		}
		out := ""
		for i, a := range args {
			if i > 0 {
				out += "-"
			}
			out += a
		}
		return out, nil
	}

	e, err := CompileExpr("id: ${1,2:join}")
	if err != nil {
		t.Fatalf("CompileExpr error: %v", err)
	}
	v, err := e.Eval([]string{"a", "b"}, call)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if v != "id: a-b" {
		t.Errorf("Eval = %v, want %q", v, "id: a-b")
	}
}

func TestEvalFuncStructuredResult(t *testing.T) {
	type structured struct{ v string }
	call := func(name string, args []string) (any, error) {
		return structured{v: args[0]}, nil
	}

	// The whole expression is the call: the raw result passes through.
	e, err := CompileExpr("${1:f}")
	if err != nil {
		t.Fatalf("CompileExpr error: %v", err)
	}
	v, err := e.Eval([]string{"a"}, call)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if v != (structured{v: "a"}) {
		t.Errorf("Eval = %v, want structured result", v)
	}

	// Embedded in a larger expression: structured results are invalid.
	e, err = CompileExpr("x${1:f}")
	if err != nil {
		t.Fatalf("CompileExpr error: %v", err)
	}
	if _, err := e.Eval([]string{"a"}, call); err == nil {
		t.Error("Eval succeeded, want error for structured result inside expression")
	}
}

func TestEvalFuncArgumentOutOfRange(t *testing.T) {
	call := func(name string, args []string) (any, error) {
		t.Fatal("function called despite bad argument reference")
		return nil, nil
	}

	e, err := CompileExpr("${1,5:f}")
	if err != nil {
		t.Fatalf("CompileExpr error: %v", err)
	}
	_, err = e.Eval([]string{"a", "b"}, call)
	var cie *ColumnIndexError
	if !errors.As(err, &cie) {
		t.Fatalf("Eval error = %v, want *ColumnIndexError", err)
	}
}
