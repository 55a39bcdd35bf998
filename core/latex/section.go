package latex

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/texforge/core/errors"
)

// Level is a sectioning depth, ordered from outermost to innermost.
type Level int

const (
	LevelPart Level = iota
	LevelChapter
	LevelSection
	LevelSubsection
	LevelSubsubsection
	LevelParagraph
	LevelSubparagraph
)

var levelCommands = [...]string{
	LevelPart:          "part",
	LevelChapter:       "chapter",
	LevelSection:       "section",
	LevelSubsection:    "subsection",
	LevelSubsubsection: "subsubsection",
	LevelParagraph:     "paragraph",
	LevelSubparagraph:  "subparagraph",
}

// String returns the heading command name for l, without the backslash.
func (l Level) String() string {
	if l < LevelPart || l > LevelSubparagraph {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelCommands[l]
}

// ParseLevel maps a heading command name ("section", "subsection", ...) to
// its Level.
func ParseLevel(name string) (Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, cmd := range levelCommands {
		if cmd == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown section level %q", errors.ErrInvalidInput, name)
}

// Section is a heading followed by its content.
type Section struct {
	Container
	Level    Level
	Title    Node
	Numbered bool
	Label    string
}

// NewHeading returns a numbered heading at the given level. A string title
// is escaped; pass Raw or an Inline container for formatted titles.
func NewHeading(level Level, title any, items ...any) *Section {
	s := &Section{
		Level:    level,
		Title:    toNode(title),
		Numbered: true,
	}
	s.Append(items...)
	return s
}

// NewSection returns a \section.
func NewSection(title any, items ...any) *Section {
	return NewHeading(LevelSection, title, items...)
}

// NewSubsection returns a \subsection.
func NewSubsection(title any, items ...any) *Section {
	return NewHeading(LevelSubsection, title, items...)
}

// NewSubsubsection returns a \subsubsection.
func NewSubsubsection(title any, items ...any) *Section {
	return NewHeading(LevelSubsubsection, title, items...)
}

// Render returns the heading command followed by the section content.
func (s *Section) Render() string {
	var sb strings.Builder
	sb.WriteString(`\`)
	sb.WriteString(s.Level.String())
	if !s.Numbered {
		sb.WriteString("*")
	}
	sb.WriteString("{")
	if s.Title != nil {
		sb.WriteString(s.Title.Render())
	}
	sb.WriteString("}")
	if s.Label != "" {
		sb.WriteString(`\label{`)
		sb.WriteString(s.Label)
		sb.WriteString("}")
	}
	if body := s.Container.Render(); body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
	}
	return sb.String()
}

// Children returns the title followed by the section content.
func (s *Section) Children() []Node {
	out := s.Container.Children()
	if s.Title != nil {
		out = append([]Node{s.Title}, out...)
	}
	return out
}
