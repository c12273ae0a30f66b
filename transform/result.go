// Package transform turns one input row into a finished metadata
// record by evaluating every mapping in file order and routing the
// results into the flat EZID element map or the DataCite XML builder.
package transform

import "fmt"

// Result is the value returned by a user-supplied function. It is a
// tagged variant: a plain string, a single relative-path write, or an
// ordered list of results.
type Result interface {
	isResult()
}

// String is a plain text result, treated identically to a literal
// expression result.
type String string

// Pair writes Value at Path relative to the mapping's XPath
// destination. Path may contain single-dot segments and may end in an
// @attribute reference.
type Pair struct {
	Path  string
	Value Result
}

// List is an ordered sequence of results, flattened recursively in
// order.
type List []Result

func (String) isResult() {}
func (Pair) isResult()   {}
func (List) isResult()   {}

// FuncError reports a user-function failure: an unknown function name,
// a function that returned an error, or a structured result used where
// only a string is valid. It is a per-row, recoverable error.
type FuncError struct {
	Name string
	Err  error
}

func (e *FuncError) Error() string {
	return fmt.Sprintf("user function %s: %v", e.Name, e.Err)
}

func (e *FuncError) Unwrap() error {
	return e.Err
}
