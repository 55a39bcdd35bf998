package latex

import (
	"strings"
)

// Command is a LaTeX macro invocation: \name[options]{arg}{arg}...
type Command struct {
	Name    string
	Options []string
	Args    []Node
}

// NewCommand builds a command. Arguments are normalized like
// Container.Append, so string arguments are escaped.
func NewCommand(name string, args ...any) *Command {
	c := &Command{Name: name}
	for _, a := range args {
		c.Args = append(c.Args, toNode(a))
	}
	return c
}

// WithOptions sets the optional bracketed arguments. Options are emitted
// verbatim.
func (c *Command) WithOptions(options ...string) *Command {
	c.Options = options
	return c
}

// Render returns the command source.
func (c *Command) Render() string {
	var sb strings.Builder
	sb.WriteString(`\`)
	sb.WriteString(c.Name)
	writeOptions(&sb, c.Options)
	for _, a := range c.Args {
		sb.WriteString("{")
		sb.WriteString(a.Render())
		sb.WriteString("}")
	}
	return sb.String()
}

// Children returns the arguments.
func (c *Command) Children() []Node {
	return append([]Node(nil), c.Args...)
}

// Environment is a \begin{name} ... \end{name} block around its children.
type Environment struct {
	Container
	Name    string
	Options []string
	Args    []Node
}

// NewEnvironment returns an environment holding items.
func NewEnvironment(name string, items ...any) *Environment {
	e := &Environment{Name: name}
	e.Append(items...)
	return e
}

// Render returns the environment source.
func (e *Environment) Render() string {
	var sb strings.Builder
	sb.WriteString(`\begin{`)
	sb.WriteString(e.Name)
	sb.WriteString("}")
	writeOptions(&sb, e.Options)
	for _, a := range e.Args {
		sb.WriteString("{")
		sb.WriteString(a.Render())
		sb.WriteString("}")
	}
	sb.WriteString("\n")
	if body := e.Container.Render(); body != "" {
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	sb.WriteString(`\end{`)
	sb.WriteString(e.Name)
	sb.WriteString("}")
	return sb.String()
}

// Children returns the environment arguments followed by its body.
func (e *Environment) Children() []Node {
	return append(append([]Node(nil), e.Args...), e.Container.Children()...)
}

func writeOptions(sb *strings.Builder, options []string) {
	if len(options) == 0 {
		return
	}
	sb.WriteString("[")
	sb.WriteString(strings.Join(options, ","))
	sb.WriteString("]")
}

// Bold typesets content in bold face.
func Bold(content any) *Command {
	return NewCommand("textbf", content)
}

// Italic typesets content in italics.
func Italic(content any) *Command {
	return NewCommand("textit", content)
}

// Emph emphasizes content.
func Emph(content any) *Command {
	return NewCommand("emph", content)
}

// Typewriter typesets content in a monospaced face.
func Typewriter(content any) *Command {
	return NewCommand("texttt", content)
}

// NewLine ends the current line without starting a paragraph.
func NewLine() *Command {
	return NewCommand("newline")
}

// LineBreak breaks the line at this point, justifying the line before it.
func LineBreak() *Command {
	return NewCommand("linebreak")
}

// NewPage starts a new page.
func NewPage() *Command {
	return NewCommand("newpage")
}
