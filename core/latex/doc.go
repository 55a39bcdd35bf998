// Package latex assembles LaTeX documents as trees of typed nodes and
// renders them to source.
//
// Every element implements Node. Composite elements (Section, Environment,
// Math, Document) embed a Container, an append-only list of children;
// Table and Matrix shape their content into rows. Rendering is a single
// depth-first walk that never modifies the tree.
//
// Strings appended to a container are escaped with encoding.EscapeLaTeX.
// Use Raw to embed hand-written LaTeX, and note that Math treats bare
// strings as math source.
//
//	doc := latex.NewDocument(latex.WithTitle("Report"), latex.WithMakeTitle())
//	sec := latex.NewSection("Intro", "50% done & more")
//	tbl, _ := latex.NewTable("rc|cl")
//	tbl.AddHline()
//	_ = tbl.AddRow(1, 2, 3, 4)
//	sec.Append(tbl)
//	doc.Append(sec)
//	src := doc.Render()
//
// Construction errors (ShapeError, RangeError, ConflictError from
// core/errors) are returned by the call that would break an invariant, and
// the tree is left unchanged.
package latex
