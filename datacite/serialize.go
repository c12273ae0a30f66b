package datacite

import (
	"fmt"
	"strings"
)

// Serialize renders the tree as a compact XML document. Attribute order
// on each element follows write order; child order follows creation
// order.
func (t *Tree) Serialize() string {
	if t.root < 0 {
		return ""
	}
	var buf strings.Builder
	t.writeElement(&buf, t.root)
	return buf.String()
}

func (t *Tree) writeElement(buf *strings.Builder, ref NodeRef) {
	n := &t.nodes[ref]

	buf.WriteString("<")
	buf.WriteString(n.name)
	for _, a := range n.attrs {
		fmt.Fprintf(buf, ` %s="%s"`, a.name, escapeXML(a.value))
	}

	if n.text == "" && len(n.children) == 0 {
		buf.WriteString("/>")
		return
	}

	buf.WriteString(">")
	buf.WriteString(escapeXML(n.text))
	for _, child := range n.children {
		t.writeElement(buf, child)
	}
	buf.WriteString("</")
	buf.WriteString(n.name)
	buf.WriteString(">")
}

func escapeXML(s string) string {
	var buf strings.Builder
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&apos;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
