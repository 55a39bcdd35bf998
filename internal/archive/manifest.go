package archive

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/FocuswithJustin/texforge/core/cas"
	"github.com/FocuswithJustin/texforge/core/errors"
)

// ManifestName is the file appended to every bundle.
const ManifestName = "manifest.json"

// ManifestVersion is the current manifest format version.
const ManifestVersion = "1"

// Manifest lists the files of a bundle with their digests.
type Manifest struct {
	Version string      `json:"version"`
	Job     string      `json:"job,omitempty"`
	Created string      `json:"created"`
	Files   []FileEntry `json:"files"`
}

// FileEntry describes one bundled file. Path is relative to the bundle's
// top-level directory and uses forward slashes.
type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// ReadManifest returns the manifest of the bundle at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := ReadFile(path, ManifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &errors.ParseError{Format: "bundle manifest", Path: path, Message: err.Error(), Err: err}
	}
	return &m, nil
}

// Verify reads every file in the bundle at path and checks it against the
// manifest. A missing, extra or altered file yields an error wrapping
// errors.ErrCorrupt.
func Verify(path string) (*Manifest, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	want := make(map[string]FileEntry, len(m.Files))
	for _, f := range m.Files {
		want[f.Path] = f
	}

	seen := make(map[string]bool, len(m.Files))
	err = IterateBundle(path, func(header *tar.Header, r io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg {
			return false, nil
		}
		name := stripBase(header.Name)
		if name == ManifestName {
			return false, nil
		}
		entry, ok := want[name]
		if !ok {
			return true, fmt.Errorf("%s: unlisted file %s: %w", path, name, errors.ErrCorrupt)
		}
		digest, err := cas.DigestReader(r)
		if err != nil {
			return true, err
		}
		if digest != entry.Digest || header.Size != entry.Size {
			return true, fmt.Errorf("%s: %s: %w", path, name, errors.ErrCorrupt)
		}
		seen[name] = true
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range m.Files {
		if !seen[f.Path] {
			return nil, fmt.Errorf("%s: missing file %s: %w", path, f.Path, errors.ErrCorrupt)
		}
	}
	return m, nil
}

// stripBase removes the top-level directory from an entry name.
func stripBase(name string) string {
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// DetectFormat detects the archive format from the file extension.
func DetectFormat(path string) string {
	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		return "tar.xz"
	case strings.HasSuffix(path, ".tar.gz"):
		return "tar.gz"
	case strings.HasSuffix(path, ".tar"):
		return "tar"
	default:
		return "unknown"
	}
}
