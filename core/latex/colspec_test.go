package latex

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/texforge/core/errors"
)

func TestParseColumnSpec(t *testing.T) {
	tests := []struct {
		spec string
		want []Column
	}{
		{"rc|cl", []Column{{Type: "r"}, {Type: "c"}, {Type: "c"}, {Type: "l"}}},
		{"|l|c|r|", []Column{{Type: "l"}, {Type: "c"}, {Type: "r"}}},
		{"l", []Column{{Type: "l"}}},
		{"p{3cm}c", []Column{{Type: "p", Width: "3cm"}, {Type: "c"}}},
		{"m{0.3\\textwidth}b{2em}", []Column{{Type: "m", Width: "0.3\\textwidth"}, {Type: "b", Width: "2em"}}},
		{"*{3}{c}", []Column{{Type: "c"}, {Type: "c"}, {Type: "c"}}},
		{"l*{2}{|c}|", []Column{{Type: "l"}, {Type: "c"}, {Type: "c"}}},
		{"*{2}{*{2}{c}}", []Column{{Type: "c"}, {Type: "c"}, {Type: "c"}, {Type: "c"}}},
		{"@{}lr@{}", []Column{{Type: "l"}, {Type: "r"}}},
		{">{\\bfseries}l r", []Column{{Type: "l"}, {Type: "r"}}},
		{"l!{\\vrule width 2pt}r", []Column{{Type: "l"}, {Type: "r"}}},
		{"c<{\\hfill}", []Column{{Type: "c"}}},
		{"X", []Column{{Type: "X"}}},
		{"p{\\dimexpr\\linewidth-2cm\\relax}", []Column{{Type: "p", Width: "\\dimexpr\\linewidth-2cm\\relax"}}},
		{" l | c ", []Column{{Type: "l"}, {Type: "c"}}},
		{"lD{.}{.}{2}r", []Column{{Type: "l"}, {Type: "D", Width: "."}, {Type: "r"}}},
		{"*{2}{D{,}{.}{-1}}", []Column{{Type: "D", Width: ","}, {Type: "D", Width: ","}}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseColumnSpec(tt.spec)
			if err != nil {
				t.Fatalf("ParseColumnSpec(%q) error: %v", tt.spec, err)
			}
			if diff := cmp.Diff(tt.want, got.Columns()); diff != "" {
				t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
			}
			if got.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", got.Len(), len(tt.want))
			}
			if got.String() != tt.spec {
				t.Errorf("String() = %q, want %q", got.String(), tt.spec)
			}
		})
	}
}

func TestParseColumnSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"rules only", "||"},
		{"argument on l", "l{x}"},
		{"p without width", "p"},
		{"p with empty width", "p{ }"},
		{"p with two widths", "p{1cm}{2cm}"},
		{"zero repeat", "*{0}{c}"},
		{"non-numeric repeat", "*{x}{c}"},
		{"repeat missing body", "*{2}"},
		{"stray character", "l.c"},
		{"unbalanced brace", "c{"},
		{"insert without group", "@l"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseColumnSpec(tt.spec)
			if err == nil {
				t.Fatalf("ParseColumnSpec(%q) should fail", tt.spec)
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("error %v should match ErrInvalidInput", err)
			}
			var perr *errors.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T should be a *ParseError", err)
			}
			if perr.Format != "column spec" {
				t.Errorf("Format = %q, want %q", perr.Format, "column spec")
			}
		})
	}
}

func TestColumnsIsCopy(t *testing.T) {
	spec, err := ParseColumnSpec("lr")
	if err != nil {
		t.Fatal(err)
	}
	cols := spec.Columns()
	cols[0].Type = "z"
	if spec.Columns()[0].Type != "l" {
		t.Error("mutating Columns() changed the spec")
	}
}
