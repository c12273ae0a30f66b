// Package mapping parses batch registration mapping files and compiles
// the column-interpolation expressions they contain.
//
// A mapping file is line-oriented. Each non-blank, non-comment line has
// the form
//
//	destination = expression
//
// where destination is either a flat EZID element name (e.g. _target,
// erc.who) or an absolute XPath into a DataCite document (e.g.
// /resource/titles/title or /resource/titles/title@titleType), and
// expression is literal text with $n / ${n} column references, $$ for a
// literal dollar sign, and ${n,m:func} user-function calls.
package mapping

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies a mapping destination.
type Kind int

const (
	// KindElement is a flat EZID metadata element (no leading slash).
	KindElement Kind = iota
	// KindXPath is an absolute element path into the DataCite document.
	KindXPath
	// KindXPathAttr is an absolute path ending in an attribute reference.
	KindXPathAttr
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindXPath:
		return "xpath"
	case KindXPathAttr:
		return "xpath-attribute"
	default:
		return "unknown"
	}
}

// Mapping is one parsed line of a mapping file. The order of mappings in
// the file is semantically significant: it drives element grouping and
// sibling multiplicity in the XML builder.
type Mapping struct {
	// Destination is the verbatim destination token.
	Destination string

	// Kind classifies the destination.
	Kind Kind

	// Expr is the compiled expression.
	Expr *Expr

	// Line is the 1-based line number in the mapping file.
	Line int
}

// IsXPath reports whether the mapping targets the DataCite document.
func (m Mapping) IsXPath() bool {
	return m.Kind == KindXPath || m.Kind == KindXPathAttr
}

var (
	elementRe = regexp.MustCompile(`^[\w.]+$`)
	xpathRe   = regexp.MustCompile(`^(/\w+)+(@\w+)?$`)
)

// classify validates a destination token and determines its kind.
func classify(dest string) (Kind, error) {
	if !strings.HasPrefix(dest, "/") {
		if !elementRe.MatchString(dest) {
			return 0, fmt.Errorf("invalid element name %q", dest)
		}
		return KindElement, nil
	}
	if !xpathRe.MatchString(dest) {
		return 0, fmt.Errorf("invalid XPath expression %q", dest)
	}
	if strings.Contains(lastSegment(dest), "@") {
		return KindXPathAttr, nil
	}
	return KindXPath, nil
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// SyntaxError is a fatal mapping-file error. It aborts the batch before
// any row is processed.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s, line %d: %s", e.File, e.Line, e.Msg)
}

// ColumnIndexError reports a column reference that cannot be satisfied
// by the current input row. It is a per-row, recoverable error.
type ColumnIndexError struct {
	Index   int
	Columns int
}

func (e *ColumnIndexError) Error() string {
	if e.Index < 1 {
		return fmt.Sprintf("invalid column reference $%d: column indexes are 1-based", e.Index)
	}
	return fmt.Sprintf("column reference $%d exceeds row length %d", e.Index, e.Columns)
}
