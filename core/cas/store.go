// Package cas provides content-addressed storage for blobs.
// Blobs are stored under their BLAKE3 digest, so identical content is
// kept once and can be verified on read. Named refs map arbitrary keys
// (such as the digest of a LaTeX source) to a blob digest.
package cas

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/FocuswithJustin/texforge/core/errors"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// ErrBlobNotFound is returned when no blob or ref exists for a digest.
// It matches errors.ErrNotFound.
var ErrBlobNotFound = fmt.Errorf("blob %w", errors.ErrNotFound)

// ErrInvalidDigest is returned when a digest string is not a valid BLAKE3 hex string.
var ErrInvalidDigest = fmt.Errorf("%w: invalid digest format", errors.ErrInvalidInput)

// Store is a directory of blobs keyed by BLAKE3 digest. It is safe for
// concurrent use by multiple goroutines and processes: every write goes
// to a temp file that is renamed into place.
type Store struct {
	root string
}

// ref is the structure stored in ref files.
type ref struct {
	Blob    string    `json:"blob"`
	Created time.Time `json:"created"`
}

// NewStore creates a store at root, creating the directory layout if needed.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{"blobs", "refs"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, errors.NewIO("create", filepath.Join(root, dir), err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Put stores data and returns its digest. Storing content that is already
// present is a no-op.
func (s *Store) Put(data []byte) (string, error) {
	digest := Digest(data)
	blobPath := s.blobPath(digest)
	if _, err := os.Stat(blobPath); err == nil {
		return digest, nil
	}
	if err := s.writeAtomic(blobPath, data); err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return digest, nil
}

// Get returns the blob with the given digest. The content is verified
// against the digest before it is returned.
func (s *Store) Get(digest string) ([]byte, error) {
	if !ValidDigest(digest) {
		return nil, ErrInvalidDigest
	}
	data, err := os.ReadFile(s.blobPath(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, errors.NewIO("read", s.blobPath(digest), err)
	}
	if Digest(data) != digest {
		return nil, fmt.Errorf("%w: %s", errors.ErrCorrupt, digest)
	}
	return data, nil
}

// Has reports whether a blob with the given digest exists.
func (s *Store) Has(digest string) bool {
	if !ValidDigest(digest) {
		return false
	}
	_, err := os.Stat(s.blobPath(digest))
	return err == nil
}

// SetRef points key at the blob with the given digest, replacing any
// previous target. key must itself be a digest.
func (s *Store) SetRef(key, digest string) error {
	if !ValidDigest(key) || !ValidDigest(digest) {
		return ErrInvalidDigest
	}
	data, err := json.Marshal(ref{Blob: digest, Created: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal ref: %w", err)
	}
	if err := s.writeAtomic(s.refPath(key), data); err != nil {
		return fmt.Errorf("failed to write ref: %w", err)
	}
	return nil
}

// Ref returns the blob digest key points at. It returns ErrBlobNotFound
// when the ref or its target is missing.
func (s *Store) Ref(key string) (string, error) {
	if !ValidDigest(key) {
		return "", ErrInvalidDigest
	}
	data, err := os.ReadFile(s.refPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrBlobNotFound
		}
		return "", errors.NewIO("read", s.refPath(key), err)
	}
	var r ref
	if err := json.Unmarshal(data, &r); err != nil {
		return "", &errors.ParseError{Format: "ref", Path: s.refPath(key), Message: err.Error(), Err: err}
	}
	if !s.Has(r.Blob) {
		return "", ErrBlobNotFound
	}
	return r.Blob, nil
}

// DeleteRef removes a ref. Removing a missing ref is not an error.
func (s *Store) DeleteRef(key string) error {
	if !ValidDigest(key) {
		return ErrInvalidDigest
	}
	if err := os.Remove(s.refPath(key)); err != nil && !os.IsNotExist(err) {
		return errors.NewIO("remove", s.refPath(key), err)
	}
	return nil
}

// writeAtomic writes data to a temp file next to path and renames it into place.
func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create prefix directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename to final path (atomic on POSIX)
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// blobPath returns <root>/blobs/<first2>/<digest>.
func (s *Store) blobPath(digest string) string {
	return filepath.Join(s.root, "blobs", digest[:2], digest)
}

// refPath returns <root>/refs/<first2>/<key>.json.
func (s *Store) refPath(key string) string {
	return filepath.Join(s.root, "refs", key[:2], key+".json")
}
