package validation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantError error
	}{
		{
			name:      "valid relative path",
			path:      "report.yaml",
			wantError: nil,
		},
		{
			name:      "valid absolute path",
			path:      "/tmp/out/report.pdf",
			wantError: nil,
		},
		{
			name:      "empty path",
			path:      "",
			wantError: ErrEmptyPath,
		},
		{
			name:      "path with null byte",
			path:      "file\x00.yaml",
			wantError: ErrInvalidCharacter,
		},
		{
			name:      "path with control character",
			path:      "dir/file\n.yaml",
			wantError: ErrInvalidCharacter,
		},
		{
			name:      "very long path",
			path:      strings.Repeat("a/", 2048) + "file.yaml",
			wantError: ErrPathTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)

			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantError)
				}
				return
			}

			if err != nil {
				t.Errorf("ValidatePath() unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeJobName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"report.yaml", "report"},
		{"/tmp/outlines/annual-report.xml", "annual-report"},
		{"My Report.yaml", "My_Report"},
		{"v1.2.yaml", "v1.2"},
		{"-flag.yaml", "flag"},
		{".hidden.yaml", "hidden"},
		{"résumé.yaml", "r_sum_"},
		{"   .yaml", "document"},
		{".yaml", "document"},
		{strings.Repeat("x", 80) + ".yaml", strings.Repeat("x", 64)},
	}

	for _, tt := range tests {
		if got := SanitizeJobName(tt.input); got != tt.want {
			t.Errorf("SanitizeJobName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		content      []byte
		wantFileType FileType
		wantError    bool
	}{
		{
			name:         "tar.xz with xz magic",
			filename:     "bundle.tar.xz",
			content:      []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00},
			wantFileType: FileTypeTarXZ,
		},
		{
			name:         "tgz with gzip magic",
			filename:     "bundle.tgz",
			content:      []byte{0x1f, 0x8b, 0x08, 0x00},
			wantFileType: FileTypeTarGZ,
		},
		{
			name:         "tar.xz holding gzip",
			filename:     "bundle.tar.xz",
			content:      []byte{0x1f, 0x8b, 0x08, 0x00},
			wantError:    true,
			wantFileType: FileTypeUnknown,
		},
		{
			name:         "sqlite history",
			filename:     "history.db",
			content:      []byte("SQLite format 3\x00"),
			wantFileType: FileTypeSQLite,
		},
		{
			name:         "pdf",
			filename:     "report.pdf",
			content:      []byte("%PDF-1.5\n"),
			wantFileType: FileTypePDF,
		},
		{
			name:         "pdf that is text",
			filename:     "report.pdf",
			content:      []byte("not a pdf"),
			wantError:    true,
			wantFileType: FileTypeUnknown,
		},
		{
			name:         "yaml outline",
			filename:     "report.yaml",
			content:      []byte("class: article\nbody: []\n"),
			wantFileType: FileTypeYAML,
		},
		{
			name:         "empty yaml outline",
			filename:     "empty.yml",
			content:      nil,
			wantFileType: FileTypeYAML,
		},
		{
			name:         "xml outline",
			filename:     "report.xml",
			content:      []byte(`<?xml version="1.0"?><document/>`),
			wantFileType: FileTypeXML,
		},
		{
			name:         "yaml that is gzip",
			filename:     "report.yaml",
			content:      []byte{0x1f, 0x8b, 0x08, 0x00},
			wantError:    true,
			wantFileType: FileTypeUnknown,
		},
		{
			name:         "tex that is binary",
			filename:     "report.tex",
			content:      []byte{0x01, 0x02, 0x00, 0x03},
			wantError:    true,
			wantFileType: FileTypeUnknown,
		},
		{
			name:         "unknown extension reports content",
			filename:     "blob.bin",
			content:      []byte("%PDF-1.7"),
			wantFileType: FileTypePDF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileType(bytes.NewReader(tt.content), tt.filename)
			if tt.wantError {
				if !errors.Is(err, ErrTypeMismatch) {
					t.Errorf("ValidateFileType() error = %v, want ErrTypeMismatch", err)
				}
			} else if err != nil {
				t.Errorf("ValidateFileType() unexpected error: %v", err)
			}
			if got != tt.wantFileType {
				t.Errorf("ValidateFileType() = %v, want %v", got, tt.wantFileType)
			}
		})
	}
}

// errorReader is a reader that always returns an error
type errorReader struct{}

func (e errorReader) Read(p []byte) (n int, err error) {
	return 0, fmt.Errorf("read error")
}

func TestValidateFileType_ReadError(t *testing.T) {
	_, err := ValidateFileType(errorReader{}, "test.yaml")
	if err == nil {
		t.Fatal("ValidateFileType() expected error from reader, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read file header") {
		t.Errorf("ValidateFileType() error = %v, want error about reading file header", err)
	}
}

func TestIsLikelyText(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{"plain ascii text", []byte("This is plain ASCII text."), true},
		{"windows line endings", []byte("Line\r\nEndings"), true},
		{"utf-8 text", []byte("Café naïve"), true},
		{"empty", nil, false},
		{"null byte", []byte("text\x00more"), false},
		{"mostly control", []byte{0x01, 0x02, 0x03, 'a'}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLikelyText(tt.content); got != tt.want {
				t.Errorf("isLikelyText(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}
