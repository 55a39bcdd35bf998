package latex

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/texforge/core/encoding"
)

// Node is any element of a document tree that can serialize itself to
// LaTeX source. Render must not modify the node, so calling it repeatedly
// yields identical output.
type Node interface {
	Render() string
}

// Text is caller-supplied plain text. It is escaped when rendered.
type Text string

// Render returns the escaped text.
func (t Text) Render() string {
	return encoding.EscapeLaTeX(string(t))
}

// Raw is a pre-formatted LaTeX fragment. It is rendered verbatim.
type Raw string

// Render returns the fragment unchanged.
func (r Raw) Render() string {
	return string(r)
}

// Package is a \usepackage requirement.
type Package struct {
	Name    string
	Options []string
}

// Render returns the \usepackage command for p.
func (p Package) Render() string {
	if len(p.Options) == 0 {
		return `\usepackage{` + p.Name + `}`
	}
	return `\usepackage[` + strings.Join(p.Options, ",") + `]{` + p.Name + `}`
}

// PackageRequirer is implemented by nodes whose output only compiles when
// a given package is loaded. Document collects these while rendering.
type PackageRequirer interface {
	RequiredPackages() []Package
}

// Parent is implemented by nodes that hold other nodes.
type Parent interface {
	Children() []Node
}

// Walk visits root and all of its descendants depth-first, in rendering
// order.
func Walk(root Node, visit func(Node)) {
	if root == nil {
		return
	}
	visit(root)
	if p, ok := root.(Parent); ok {
		for _, child := range p.Children() {
			Walk(child, visit)
		}
	}
}

// toNode converts anything accepted by Append into a Node. Nodes pass
// through, strings become escaped Text, numbers and booleans are formatted
// and then escaped, everything else goes through fmt.
func toNode(item any) Node {
	switch v := item.(type) {
	case nil:
		return Raw("")
	case Node:
		return v
	case string:
		return Text(v)
	case []byte:
		return Text(string(v))
	case fmt.Stringer:
		return Text(v.String())
	}
	if s, ok := formatScalar(item); ok {
		return Text(s)
	}
	return Text(fmt.Sprint(item))
}

// formatScalar formats booleans, integers, floats and string kinds with
// strconv, using the shortest representation that round-trips.
func formatScalar(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), true
	case reflect.String:
		return rv.String(), true
	}
	return "", false
}

// renderAll renders nodes and joins them with sep.
func renderAll(nodes []Node, sep string) string {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(n.Render())
	}
	return sb.String()
}
