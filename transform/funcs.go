package transform

import (
	"fmt"
	"strings"
	"sync"
)

// Func is a user-supplied transformation function. It receives the
// already-interpolated column values named in the ${...:name}
// expression and returns a Result. Functions must be deterministic and
// must not keep cross-row state.
type Func func(args ...string) (Result, error)

// FuncRegistry manages named user functions. Functions are compiled in
// and registered by name; a mapping expression refers to them as
// ${1,2:name}.
type FuncRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewFuncRegistry creates a registry with the built-in functions
// registered.
func NewFuncRegistry() *FuncRegistry {
	r := &FuncRegistry{funcs: make(map[string]Func)}
	r.registerDefaults()
	return r
}

// Register adds a function to the registry.
func (r *FuncRegistry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Get retrieves a function by name.
func (r *FuncRegistry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes a named function. Unknown names and function panics are
// reported as *FuncError.
func (r *FuncRegistry) Call(name string, args []string) (res Result, err error) {
	fn, ok := r.Get(name)
	if !ok {
		return nil, &FuncError{Name: name, Err: fmt.Errorf("unknown function")}
	}
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, &FuncError{Name: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	res, err = fn(args...)
	if err != nil {
		return nil, &FuncError{Name: name, Err: err}
	}
	return res, nil
}

func (r *FuncRegistry) registerDefaults() {
	r.funcs["person_name"] = personName
	r.funcs["orcid"] = orcid
	r.funcs["keywords"] = keywords
}

// personName expands a "Family, Given" name into a creatorName with
// givenName/familyName children. A name without a comma is emitted as
// creatorName only.
func personName(args ...string) (Result, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("person_name takes one argument, got %d", len(args))
	}
	name := strings.TrimSpace(args[0])
	if name == "" {
		return String(""), nil
	}

	out := List{Pair{Path: "creatorName", Value: String(name)}}
	if family, given, ok := strings.Cut(name, ","); ok {
		out = append(out,
			Pair{Path: "givenName", Value: String(strings.TrimSpace(given))},
			Pair{Path: "familyName", Value: String(strings.TrimSpace(family))},
		)
	}
	return out, nil
}

// orcid emits a nameIdentifier element with the ORCID scheme
// attributes.
func orcid(args ...string) (Result, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("orcid takes one argument, got %d", len(args))
	}
	id := strings.TrimSpace(args[0])
	if id == "" {
		return String(""), nil
	}
	return List{
		Pair{Path: "nameIdentifier", Value: String(id)},
		Pair{Path: "nameIdentifier@nameIdentifierScheme", Value: String("ORCID")},
		Pair{Path: "nameIdentifier@schemeURI", Value: String("https://orcid.org")},
	}, nil
}

// keywords splits a delimited keyword cell into one subject element per
// keyword. Accepts semicolons or pipes as delimiters.
func keywords(args ...string) (Result, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("keywords takes one argument, got %d", len(args))
	}
	var out List
	for _, kw := range strings.FieldsFunc(args[0], func(r rune) bool { return r == ';' || r == '|' }) {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, Pair{Path: "subject", Value: String(kw)})
		}
	}
	return out, nil
}
