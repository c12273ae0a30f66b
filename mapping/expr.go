package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// FuncCaller invokes a named user-supplied function with
// already-interpolated argument values. The result is either a plain
// string, which is spliced into the surrounding expression, or a
// structured value that the record transformer routes into the XML
// builder.
type FuncCaller func(name string, args []string) (any, error)

type segKind int

const (
	segLiteral segKind = iota
	segColumn
	segFunc
)

type segment struct {
	kind segKind
	text string // segLiteral
	col  int    // segColumn, 1-based
	fn   string // segFunc
	args []int  // segFunc argument columns, 1-based
}

// Expr is a compiled mapping expression: an ordered sequence of literal,
// column-reference, and function-call segments. Compiled once at
// startup, immutable, and safe to evaluate against any number of rows.
type Expr struct {
	src  string
	segs []segment
}

// Source returns the original expression text.
func (e *Expr) Source() string {
	return e.src
}

// HasFunc reports whether the expression contains a user-function call.
func (e *Expr) HasFunc() bool {
	for _, s := range e.segs {
		if s.kind == segFunc {
			return true
		}
	}
	return false
}

// CompileExpr compiles expression text. Column references are not
// range-checked here; they are validated against each row at
// evaluation time.
func CompileExpr(text string) (*Expr, error) {
	e := &Expr{src: text}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			e.segs = append(e.segs, segment{kind: segLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); {
		c := text[i]
		if c != '$' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(text) {
			return nil, fmt.Errorf("unterminated $ at end of expression")
		}
		switch next := text[i+1]; {
		case next == '$':
			lit.WriteByte('$')
			i += 2
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(text) && text[j] >= '0' && text[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(text[i+1 : j])
			flush()
			e.segs = append(e.segs, segment{kind: segColumn, col: n})
			i = j
		case next == '{':
			end := strings.IndexByte(text[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated ${ in expression")
			}
			seg, err := parseBraced(text[i+2 : i+end])
			if err != nil {
				return nil, err
			}
			flush()
			e.segs = append(e.segs, seg)
			i += end + 1
		default:
			return nil, fmt.Errorf("invalid $ escape %q: expected digit, {, or $", text[i:i+2])
		}
	}
	flush()
	return e, nil
}

// parseBraced handles the interior of ${...}: either a column index or
// a comma-separated index list followed by :funcName.
func parseBraced(body string) (segment, error) {
	cols, fn, hasFn := body, "", false
	if i := strings.IndexByte(body, ':'); i >= 0 {
		cols, fn, hasFn = body[:i], body[i+1:], true
	}

	var indexes []int
	for _, part := range strings.Split(cols, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return segment{}, fmt.Errorf("invalid column reference ${%s}", body)
		}
		indexes = append(indexes, n)
	}

	if !hasFn {
		if len(indexes) != 1 {
			return segment{}, fmt.Errorf("invalid column reference ${%s}", body)
		}
		return segment{kind: segColumn, col: indexes[0]}, nil
	}

	if !isIdent(fn) {
		return segment{}, fmt.Errorf("invalid function name in ${%s}", body)
	}
	return segment{kind: segFunc, fn: fn, args: indexes}, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Eval interpolates the expression against a row of column values.
// Substitution is single-pass: substituted text is never re-interpolated.
//
// The result is normally a string. When the entire expression is a
// single user-function call, the function's result is returned as-is so
// structured values (tuples and lists of relative-path writes) can reach
// the XML builder. A structured result anywhere else is an error.
func (e *Expr) Eval(row []string, call FuncCaller) (any, error) {
	if len(e.segs) == 1 && e.segs[0].kind == segFunc {
		seg := e.segs[0]
		args, err := columnValues(seg.args, row)
		if err != nil {
			return nil, err
		}
		return call(seg.fn, args)
	}

	var out strings.Builder
	for _, seg := range e.segs {
		switch seg.kind {
		case segLiteral:
			out.WriteString(seg.text)
		case segColumn:
			v, err := columnValue(seg.col, row)
			if err != nil {
				return nil, err
			}
			out.WriteString(v)
		case segFunc:
			args, err := columnValues(seg.args, row)
			if err != nil {
				return nil, err
			}
			res, err := call(seg.fn, args)
			if err != nil {
				return nil, err
			}
			s, ok := res.(string)
			if !ok {
				return nil, fmt.Errorf("user function %s: structured result is only allowed as the entire expression", seg.fn)
			}
			out.WriteString(s)
		}
	}
	return out.String(), nil
}

func columnValue(col int, row []string) (string, error) {
	if col < 1 || col > len(row) {
		return "", &ColumnIndexError{Index: col, Columns: len(row)}
	}
	return row[col-1], nil
}

func columnValues(cols []int, row []string) ([]string, error) {
	args := make([]string, len(cols))
	for i, c := range cols {
		v, err := columnValue(c, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}
