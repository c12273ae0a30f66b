package mapping

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads a mapping file. Blank lines and #-comment lines are
// skipped. Any malformed line produces a *SyntaxError carrying the file
// name and line number; mapping-file errors are fatal and abort the
// batch before any row is processed.
func Parse(r io.Reader, name string) ([]Mapping, error) {
	var mappings []Mapping

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(strings.TrimSpace(text), "#") {
			continue
		}

		m, err := parseLine(text)
		if err != nil {
			return nil, &SyntaxError{File: name, Line: line, Msg: err.Error()}
		}
		m.Line = line
		mappings = append(mappings, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mapping file %s: %w", name, err)
	}

	return mappings, nil
}

// ParseFile parses the mapping file at path.
func ParseFile(path string) ([]Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping file: %w", err)
	}
	defer f.Close()

	return Parse(f, path)
}

func parseLine(text string) (Mapping, error) {
	eq := splitPoint(text)
	if eq < 0 {
		return Mapping{}, fmt.Errorf("missing = separator")
	}

	dest := strings.TrimSpace(text[:eq])
	dest = strings.ReplaceAll(dest, `\=`, "=")
	if dest == "" {
		return Mapping{}, fmt.Errorf("empty destination")
	}

	kind, err := classify(dest)
	if err != nil {
		return Mapping{}, err
	}

	// Whitespace after the = is separator padding; anything beyond it,
	// including trailing whitespace, belongs to the expression.
	exprText := strings.TrimLeft(text[eq+1:], " \t")
	exprText = strings.ReplaceAll(exprText, `\=`, "=")
	expr, err := CompileExpr(exprText)
	if err != nil {
		return Mapping{}, err
	}

	return Mapping{Destination: dest, Kind: kind, Expr: expr}, nil
}

// splitPoint finds the first = not escaped by a backslash.
func splitPoint(text string) int {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '=':
			return i
		}
	}
	return -1
}
