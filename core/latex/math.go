package latex

import (
	"strings"
)

// MathMode selects how a Math block is delimited.
type MathMode int

const (
	// MathDisplay renders \[ ... \].
	MathDisplay MathMode = iota
	// MathInline renders $ ... $.
	MathInline
	// MathEquation renders a numbered equation environment.
	MathEquation
)

// Math is a math-mode container. Bare strings appended to it are math
// source and are not text-escaped; wrap caller text in Text to escape it.
// Children are separated by single spaces.
type Math struct {
	Container
	Mode MathMode
}

func newMath(mode MathMode, items []any) *Math {
	m := &Math{
		Container: Container{sep: " ", sepSet: true},
		Mode:      mode,
	}
	m.Append(items...)
	return m
}

// NewMath returns a display math block.
func NewMath(items ...any) *Math {
	return newMath(MathDisplay, items)
}

// NewInlineMath returns an inline math span.
func NewInlineMath(items ...any) *Math {
	return newMath(MathInline, items)
}

// NewEquation returns a numbered equation.
func NewEquation(items ...any) *Math {
	return newMath(MathEquation, items)
}

// Append adds items to the block. Strings are kept as raw math source;
// other values are normalized like Container.Append.
func (m *Math) Append(items ...any) {
	for _, item := range items {
		if s, ok := item.(string); ok {
			m.Container.Extend([]Node{Raw(s)})
			continue
		}
		m.Container.Append(item)
	}
}

// Render returns the delimited math source.
func (m *Math) Render() string {
	body := m.Container.Render()
	var sb strings.Builder
	switch m.Mode {
	case MathInline:
		sb.WriteString("$")
		sb.WriteString(body)
		sb.WriteString("$")
	case MathEquation:
		sb.WriteString("\\begin{equation}\n")
		sb.WriteString(body)
		sb.WriteString("\n\\end{equation}")
	default:
		sb.WriteString("\\[\n")
		sb.WriteString(body)
		sb.WriteString("\n\\]")
	}
	return sb.String()
}
