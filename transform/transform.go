package transform

import (
	"fmt"
	"regexp"

	"github.com/lehigh-university-libraries/ezid-batch/datacite"
	"github.com/lehigh-university-libraries/ezid-batch/mapping"
)

// Record is the finished metadata for one input row.
type Record struct {
	// Elements is the flat EZID element map. When any XPath mapping
	// was present it carries a synthetic "datacite" entry with the
	// serialized XML and a "_profile" entry unless the mapping file
	// set one.
	Elements map[string]string

	// ID is the value of the last _id mapping, empty when none was
	// mapped. It is consumed by the batch driver, never sent as an
	// element.
	ID string
}

// Transformer applies a compiled mapping list to input rows. It is
// built once at startup and is immutable for the run; each Transform
// call builds fresh per-row state.
type Transformer struct {
	Mappings []mapping.Mapping
	Funcs    *FuncRegistry

	// Operation and Shoulder decide whether the DataCite identifier
	// stub is typed from the mint shoulder or from the mapped _id.
	Operation string
	Shoulder  string
}

// New creates a transformer with the default function registry.
func New(mappings []mapping.Mapping, operation, shoulder string) *Transformer {
	return &Transformer{
		Mappings:  mappings,
		Funcs:     NewFuncRegistry(),
		Operation: operation,
		Shoulder:  shoulder,
	}
}

// call adapts the function registry to the expression evaluator.
// String results are handed back as plain text so they splice into the
// surrounding expression; structured results pass through untouched.
func (t *Transformer) call(name string, args []string) (any, error) {
	res, err := t.Funcs.Call(name, args)
	if err != nil {
		return nil, err
	}
	if s, ok := res.(String); ok {
		return string(s), nil
	}
	return res, nil
}

// Transform evaluates every mapping in file order against row and
// assembles the metadata record. Errors are per-row: the batch driver
// records them and moves on.
func (t *Transformer) Transform(row []string) (*Record, error) {
	rec := &Record{Elements: make(map[string]string)}
	tree := datacite.New()

	for _, m := range t.Mappings {
		if err := t.applyMapping(tree, rec, m, row); err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", m.Line, m.Destination, err)
		}
	}

	if !tree.Empty() {
		id := rec.ID
		if t.Operation == "mint" {
			id = t.Shoulder
		}
		tree.SetIdentifierType(datacite.IdentifierTypeFor(id))

		rec.Elements["datacite"] = tree.Serialize()
		if _, ok := rec.Elements["_profile"]; !ok {
			rec.Elements["_profile"] = "datacite"
		}
	}

	return rec, nil
}

func (t *Transformer) applyMapping(tree *datacite.Tree, rec *Record, m mapping.Mapping, row []string) error {
	value, err := m.Expr.Eval(row, t.call)
	if err != nil {
		return err
	}

	if !m.IsXPath() {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("user function must return a string value in mapping to EZID metadata element")
		}
		if m.Destination == "_id" {
			rec.ID = s
			return nil
		}
		rec.Elements[m.Destination] = s
		return nil
	}

	switch v := value.(type) {
	case string:
		return tree.Write(m.Destination, v)
	case String:
		return tree.Write(m.Destination, string(v))
	case Result:
		if m.Kind == mapping.KindXPathAttr {
			return fmt.Errorf("attribute destination requires a string value")
		}
		ref, err := tree.Element(m.Destination)
		if err != nil {
			return err
		}
		return applyResult(tree, ref, v)
	default:
		return fmt.Errorf("invalid return value from user-supplied function")
	}
}

var relPathRe = regexp.MustCompile(`^(\w+|[.])(/(\w+|[.]))*(@\w+)?$`)

// applyResult flattens a structured user-function result into relative
// writes below ref, preserving list order.
func applyResult(tree *datacite.Tree, ref datacite.NodeRef, res Result) error {
	switch v := res.(type) {
	case Pair:
		return applyPair(tree, ref, v)
	case List:
		for _, item := range v {
			if err := applyResult(tree, ref, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid return value from user-supplied function: malformed list or tuple")
	}
}

func applyPair(tree *datacite.Tree, ref datacite.NodeRef, p Pair) error {
	if !relPathRe.MatchString(p.Path) {
		return fmt.Errorf("invalid return value from user-supplied function: invalid relative XPath expression %q", p.Path)
	}

	switch v := p.Value.(type) {
	case String:
		return tree.WriteRel(ref, p.Path, string(v))
	case Pair, List:
		child, err := tree.ElementRel(ref, p.Path)
		if err != nil {
			return err
		}
		return applyResult(tree, child, v)
	default:
		return fmt.Errorf("invalid return value from user-supplied function: malformed list or tuple")
	}
}
