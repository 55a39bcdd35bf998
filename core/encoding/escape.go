// Package encoding provides the text escaping rules for LaTeX output.
package encoding

import (
	"strings"
)

// latexEscapes maps each reserved LaTeX character to the sequence that
// typesets it literally in text mode.
var latexEscapes = map[rune]string{
	'\\': `\textbackslash{}`,
	'{':  `\{`,
	'}':  `\}`,
	'$':  `\$`,
	'%':  `\%`,
	'&':  `\&`,
	'#':  `\#`,
	'_':  `\_`,
	'^':  `\textasciicircum{}`,
	'~':  `\textasciitilde{}`,
	'<':  `\textless{}`,
	'>':  `\textgreater{}`,
	'|':  `\textbar{}`,
}

// latexReplacer performs all replacements in a single pass, so the
// backslashes and braces introduced by an escape are never escaped again.
var latexReplacer = newLaTeXReplacer()

func newLaTeXReplacer() *strings.Replacer {
	pairs := make([]string, 0, len(latexEscapes)*2)
	for r, esc := range latexEscapes {
		pairs = append(pairs, string(r), esc)
	}
	return strings.NewReplacer(pairs...)
}

// IsReserved reports whether r has a special meaning in LaTeX text mode
// and must be escaped to appear literally.
func IsReserved(r rune) bool {
	_, ok := latexEscapes[r]
	return ok
}

// EscapeLaTeX escapes special characters for LaTeX documents.
// Escapes: \ { } $ % & # _ ^ ~ < > |
func EscapeLaTeX(s string) string {
	if !strings.ContainsFunc(s, IsReserved) {
		return s
	}
	return latexReplacer.Replace(s)
}

// EscapeLaTeXLines escapes s like EscapeLaTeX and turns every line break
// into a forced LaTeX line break, so multi-line text keeps its shape.
// Blank lines are kept as paragraph breaks.
func EscapeLaTeXLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(EscapeLaTeX(s), "\n")
	if len(lines) == 1 {
		return lines[0]
	}

	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(line)
		if i == len(lines)-1 {
			break
		}
		next := lines[i+1]
		if line == "" || next == "" {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(`\\` + "\n")
	}
	return sb.String()
}
