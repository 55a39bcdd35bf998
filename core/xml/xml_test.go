package xml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleXML = `<?xml version="1.0"?>
<document class="report">
	<title>Annual</title>
	<package name="amsmath" options="fleqn"/>
	<package name="graphicx"/>
	<body>
		<text>  Hello   </text>
		<section title="Intro"><text>inner</text></section>
	</body>
</document>`

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func TestParseInvalidXML(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"unclosed tag", "<root><element></root>"},
		{"mismatched tags", "<root></other>"},
		{"invalid chars", "<root>\x00</root>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.xml)); err == nil {
				t.Error("Parse should fail for invalid XML")
			}
		})
	}
}

func TestDocumentRoot(t *testing.T) {
	doc := mustParse(t, sampleXML)
	root := doc.Root()
	if root.Name() != "document" {
		t.Errorf("Root().Name() = %q, want %q", root.Name(), "document")
	}
	if root.Attr("class") != "report" {
		t.Errorf("Attr(class) = %q", root.Attr("class"))
	}
	if root.Attr("missing") != "" {
		t.Error("Attr(missing) should be empty")
	}
}

func TestXPath(t *testing.T) {
	doc := mustParse(t, sampleXML)
	nodes, err := doc.XPath("/document/package")
	if err != nil {
		t.Fatalf("XPath failed: %v", err)
	}
	var names []string
	for _, n := range nodes {
		names = append(names, n.Attr("name"))
	}
	if diff := cmp.Diff([]string{"amsmath", "graphicx"}, names); diff != "" {
		t.Errorf("package names mismatch (-want +got):\n%s", diff)
	}

	title, err := doc.XPathFirst("/document/title")
	if err != nil || title == nil {
		t.Fatalf("XPathFirst(title) = %v, %v", title, err)
	}
	if title.Text() != "Annual" {
		t.Errorf("title Text() = %q", title.Text())
	}

	none, err := doc.XPathFirst("/document/missing")
	if err != nil || none != nil {
		t.Errorf("XPathFirst(missing) = %v, %v; want nil, nil", none, err)
	}
}

func TestXPathInvalidExpression(t *testing.T) {
	doc := mustParse(t, sampleXML)
	if _, err := doc.XPath("[[["); err == nil {
		t.Error("XPath should fail for an invalid expression")
	}
	if _, err := doc.XPathFirst("[[["); err == nil {
		t.Error("XPathFirst should fail for an invalid expression")
	}
	if _, err := doc.Root().XPath("[[["); err == nil {
		t.Error("Node.XPath should fail for an invalid expression")
	}
}

func TestNodeRelativeXPath(t *testing.T) {
	doc := mustParse(t, sampleXML)
	body, _ := doc.XPathFirst("/document/body")
	texts, err := body.XPath("text")
	if err != nil {
		t.Fatal(err)
	}
	if len(texts) != 1 {
		t.Fatalf("body.XPath(text) found %d nodes, want only the direct child", len(texts))
	}
	if texts[0].TrimmedText() != "Hello" {
		t.Errorf("TrimmedText() = %q", texts[0].TrimmedText())
	}
}

func TestNodeChildren(t *testing.T) {
	doc := mustParse(t, sampleXML)
	body, _ := doc.XPathFirst("/document/body")
	var names []string
	for _, c := range body.Children() {
		names = append(names, c.Name())
	}
	if diff := cmp.Diff([]string{"text", "section"}, names); diff != "" {
		t.Errorf("Children() mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeAttributes(t *testing.T) {
	doc := mustParse(t, `<p name="x" options=""/>`)
	root := doc.Root()
	want := map[string]string{"name": "x", "options": ""}
	if diff := cmp.Diff(want, root.Attributes()); diff != "" {
		t.Errorf("Attributes() mismatch (-want +got):\n%s", diff)
	}
	if !root.HasAttr("options") {
		t.Error("HasAttr(options) = false for an empty attribute")
	}
	if root.HasAttr("other") {
		t.Error("HasAttr(other) = true")
	}
}

func TestNilNode(t *testing.T) {
	var n *Node
	if n.Name() != "" || n.Text() != "" || n.Attr("a") != "" || n.HasAttr("a") {
		t.Error("nil node accessors should return zero values")
	}
	if n.Children() != nil || n.Attributes() != nil {
		t.Error("nil node collections should be nil")
	}
	if nodes, err := n.XPath("x"); nodes != nil || err != nil {
		t.Errorf("nil node XPath = %v, %v", nodes, err)
	}
}

func TestRootNoElement(t *testing.T) {
	var d *Document
	if d.Root() != nil {
		t.Error("nil document Root() should be nil")
	}
}
