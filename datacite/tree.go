// Package datacite builds DataCite XML documents from an ordered
// sequence of path writes.
//
// The builder is deliberately order-sensitive: mapping-file order
// determines how repeated elements group into siblings. Element writes
// append a new element at the leaf of their path on every call, while
// ancestors reuse the most-recently-created element at each path
// prefix. Attribute writes target the most-recently-created element at
// their path and overwrite on repeat.
package datacite

import (
	"fmt"
	"log/slog"
	"strings"
)

// Namespace constants for the DataCite kernel-4 schema.
const (
	Namespace      = "http://datacite.org/schema/kernel-4"
	XSINamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocation = "http://datacite.org/schema/kernel-4 http://schema.datacite.org/meta/kernel-4/metadata.xsd"
)

// IdentifierPlaceholder is the value EZID substitutes with the newly
// minted identifier.
const IdentifierPlaceholder = "(:tba)"

// NodeRef is a handle to an element in the tree's node arena.
type NodeRef int

type attribute struct {
	name  string
	value string
}

type element struct {
	name     string
	path     string
	text     string
	attrs    []attribute
	children []NodeRef
}

// Tree constructs one DataCite document. A fresh Tree is built per
// input row and discarded after serialization; it is not safe for
// concurrent use and does not need to be.
type Tree struct {
	nodes  []element
	recent map[string]NodeRef
	root   NodeRef
}

// New returns an empty tree. The resource root and its identifier stub
// are created lazily on the first write.
func New() *Tree {
	return &Tree{recent: make(map[string]NodeRef), root: -1}
}

// Empty reports whether any write has touched the tree.
func (t *Tree) Empty() bool {
	return t.root < 0
}

func (t *Tree) ensureRoot() {
	if t.root >= 0 {
		return
	}
	t.root = t.newNode("resource", "/resource")
	t.setAttr(t.root, "xmlns", Namespace)
	t.setAttr(t.root, "xmlns:xsi", XSINamespace)
	t.setAttr(t.root, "xsi:schemaLocation", SchemaLocation)
	t.recent["/resource"] = t.root

	id := t.newChild(t.root, "identifier")
	t.setAttr(id, "identifierType", IdentifierPlaceholder)
	t.nodes[id].text = IdentifierPlaceholder
	t.recent["/resource/identifier"] = id
}

func (t *Tree) newNode(name, path string) NodeRef {
	t.nodes = append(t.nodes, element{name: name, path: path})
	return NodeRef(len(t.nodes) - 1)
}

func (t *Tree) newChild(parent NodeRef, name string) NodeRef {
	ref := t.newNode(name, t.nodes[parent].path+"/"+name)
	t.nodes[parent].children = append(t.nodes[parent].children, ref)
	return ref
}

// setAttr overwrites an existing attribute of the same name, otherwise
// appends. Attribute order on an element follows first-write order.
func (t *Tree) setAttr(ref NodeRef, name, value string) {
	n := &t.nodes[ref]
	for i := range n.attrs {
		if n.attrs[i].name == name {
			n.attrs[i].value = value
			return
		}
	}
	n.attrs = append(n.attrs, attribute{name: name, value: value})
}

// track records ref as the most-recently-created element at path and
// drops stale pointers into the subtree the new element shadows, so a
// later write whose path runs through ref starts a fresh chain.
func (t *Tree) track(path string, ref NodeRef) {
	t.recent[path] = ref
	sub := path + "/"
	for k := range t.recent {
		if strings.HasPrefix(k, sub) {
			delete(t.recent, k)
		}
	}
}

// resolve walks segs below (cur, prefix), reusing the
// most-recently-created element at each prefix. With fresh set, the
// final segment always creates a new element (sibling multiplicity);
// without it, an existing leaf is reused and a missing one is created
// implicitly. cur < 0 means the virtual document root.
func (t *Tree) resolve(cur NodeRef, prefix string, segs []string, fresh bool) NodeRef {
	t.ensureRoot()
	for i, seg := range segs {
		prefix += "/" + seg
		last := i == len(segs)-1

		if ref, ok := t.recent[prefix]; ok {
			// The document root element is a singleton; a write
			// addressed to it reuses it even in fresh mode.
			if !last || !fresh || ref == t.root {
				cur = ref
				continue
			}
		} else if !fresh && last {
			// Attribute write ahead of any element write at this
			// path: the element is created implicitly. A later
			// element write to the same path produces a second
			// element without the attribute. Kept for
			// compatibility with mapping files that rely on it.
			slog.Debug("implicit element creation for attribute write", "path", prefix)
		}

		parent := cur
		if parent < 0 {
			parent = t.root
		}
		cur = t.newChild(parent, seg)
		t.track(prefix, cur)
	}
	return cur
}

// splitPath separates a path into element segments and a trailing
// attribute name ("" when the path addresses an element). Single-dot
// segments collapse to the current element.
func splitPath(path string) (segs []string, attr string) {
	if i := strings.LastIndexByte(path, '@'); i >= 0 {
		path, attr = path[:i], path[i+1:]
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." {
			continue
		}
		segs = append(segs, seg)
	}
	return segs, attr
}

// Write performs one absolute-path write: element text for an element
// path, attribute value for a path@attr. Empty values are no-ops and
// create nothing.
func (t *Tree) Write(path, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	segs, attr := splitPath(path)
	if len(segs) == 0 {
		return fmt.Errorf("empty element path %q", path)
	}
	if attr != "" {
		ref := t.resolve(-1, "", segs, false)
		t.setAttr(ref, attr, value)
		return nil
	}
	ref := t.resolve(-1, "", segs, true)
	t.nodes[ref].text = value
	return nil
}

// Element appends a fresh element at an absolute path and returns its
// handle. It anchors a group of relative writes from a structured
// user-function result.
func (t *Tree) Element(path string) (NodeRef, error) {
	segs, attr := splitPath(path)
	if attr != "" {
		return 0, fmt.Errorf("attribute path %q cannot anchor element writes", path)
	}
	if len(segs) == 0 {
		return 0, fmt.Errorf("empty element path %q", path)
	}
	return t.resolve(-1, "", segs, true), nil
}

// ElementRel appends a fresh element at relPath below ref. A relPath of
// only dot segments resolves to ref itself.
func (t *Tree) ElementRel(ref NodeRef, relPath string) (NodeRef, error) {
	segs, attr := splitPath(relPath)
	if attr != "" {
		return 0, fmt.Errorf("attribute path %q cannot anchor element writes", relPath)
	}
	if len(segs) == 0 {
		return ref, nil
	}
	return t.resolve(ref, t.nodes[ref].path, segs, true), nil
}

// WriteRel performs one relative write below ref.
func (t *Tree) WriteRel(ref NodeRef, relPath, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	segs, attr := splitPath(relPath)
	switch {
	case attr != "" && len(segs) == 0:
		t.setAttr(ref, attr, value)
	case attr != "":
		t.setAttr(t.resolve(ref, t.nodes[ref].path, segs, false), attr, value)
	case len(segs) == 0:
		t.nodes[ref].text = value
	default:
		leaf := t.resolve(ref, t.nodes[ref].path, segs, true)
		t.nodes[leaf].text = value
	}
	return nil
}

// SetText replaces the text content of an element.
func (t *Tree) SetText(ref NodeRef, value string) {
	t.nodes[ref].text = strings.TrimSpace(value)
}

// SetIdentifierType patches the identifier stub's identifierType
// attribute ("ARK" or "DOI") once the target identifier or shoulder is
// known.
func (t *Tree) SetIdentifierType(idType string) {
	if t.root < 0 {
		return
	}
	for _, child := range t.nodes[t.root].children {
		for i := range t.nodes[child].attrs {
			if t.nodes[child].attrs[i].name == "identifierType" {
				t.nodes[child].attrs[i].value = idType
				return
			}
		}
	}
}

// IdentifierTypeFor classifies an identifier or shoulder string.
func IdentifierTypeFor(id string) string {
	if strings.HasPrefix(id, "ark:/") {
		return "ARK"
	}
	return "DOI"
}
