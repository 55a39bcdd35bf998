package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/texforge/core/cas"
	"github.com/FocuswithJustin/texforge/core/errors"
)

// BundleOptions control CreateBundle.
type BundleOptions struct {
	// BaseDir is the top-level directory inside the archive. Empty means
	// the name of the bundle file without its archive extension.
	BaseDir string
	// ModTime is stamped on every entry. The zero value means the Unix
	// epoch, so bundles of identical directories are byte-identical.
	ModTime time.Time
	// Job names the compile job recorded in the manifest.
	Job string
}

// CreateBundle archives srcDir into dstPath as .tar.xz or .tar.gz, chosen
// by the extension of dstPath, and appends a manifest with the BLAKE3
// digest of every file. Parent directories of dstPath are created.
func CreateBundle(srcDir, dstPath string, opts BundleOptions) (*Manifest, error) {
	format := DetectFormat(dstPath)
	if format != "tar.xz" && format != "tar.gz" {
		return nil, fmt.Errorf("%w: unsupported bundle format %q (want .tar.xz or .tar.gz)", errors.ErrInvalidInput, dstPath)
	}
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, errors.NewIO("stat", srcDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", errors.ErrInvalidInput, srcDir)
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = BundleName(dstPath)
	}
	modTime := opts.ModTime
	if modTime.IsZero() {
		modTime = time.Unix(0, 0)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return nil, errors.NewIO("create", filepath.Dir(dstPath), err)
	}
	outFile, err := os.Create(dstPath)
	if err != nil {
		return nil, errors.NewIO("create", dstPath, err)
	}

	manifest, err := writeBundle(outFile, format, srcDir, baseDir, modTime, opts.Job)
	if cerr := outFile.Close(); cerr != nil && err == nil {
		err = errors.NewIO("close", dstPath, cerr)
	}
	if err != nil {
		os.Remove(dstPath)
		return nil, err
	}
	return manifest, nil
}

func writeBundle(w io.Writer, format, srcDir, baseDir string, modTime time.Time, job string) (*Manifest, error) {
	var compressor io.WriteCloser
	switch format {
	case "tar.xz":
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("xz writer: %w", err)
		}
		compressor = xw
	default:
		compressor = gzip.NewWriter(w)
	}
	tw := tar.NewWriter(compressor)

	manifest := &Manifest{
		Version: ManifestVersion,
		Job:     job,
		Created: modTime.UTC().Format(time.RFC3339),
	}

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == ManifestName {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = baseDir + "/" + relPath
		if d.IsDir() {
			header.Name += "/"
		}
		header.ModTime = modTime
		header.AccessTime = time.Time{}
		header.ChangeTime = time.Time{}
		header.Uid, header.Gid = 0, 0
		header.Uname, header.Gname = "", ""
		header.Format = tar.FormatPAX

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		digest, err := cas.DigestReader(io.TeeReader(file, tw))
		if err != nil {
			return err
		}
		manifest.Files = append(manifest.Files, FileEntry{
			Path:   relPath,
			Size:   info.Size(),
			Digest: digest,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to create bundle: %w", walkErr)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    baseDir + "/" + ManifestName,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: modTime,
		Format:  tar.FormatPAX,
	}); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish %s stream: %w", format, err)
	}
	return manifest, nil
}

// BundleName derives the top-level directory name from a bundle path by
// dropping its directory and archive extension.
func BundleName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".tar.xz", ".tar.gz", ".tar"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}
