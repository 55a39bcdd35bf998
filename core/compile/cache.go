package compile

import (
	"github.com/FocuswithJustin/texforge/core/cache"
	"github.com/FocuswithJustin/texforge/core/cas"
	"github.com/FocuswithJustin/texforge/core/errors"
	"github.com/FocuswithJustin/texforge/internal/logging"
)

// BuildCache maps the digest of a rendered source to the PDF it produced.
// PDFs live in a content-addressed store, with a ref per source digest so
// hits survive restarts; an in-memory LRU keeps recent lookups off disk.
type BuildCache struct {
	store *cas.Store
	index cache.Cache[string, string]
}

// NewBuildCache returns a build cache backed by store.
func NewBuildCache(store *cas.Store, cfg cache.Config) *BuildCache {
	return &BuildCache{
		store: store,
		index: cache.NewLRUCache[string, string](cfg),
	}
}

// OpenBuildCache opens (creating if needed) a build cache in dir with the
// default LRU configuration.
func OpenBuildCache(dir string) (*BuildCache, error) {
	store, err := cas.NewStore(dir)
	if err != nil {
		return nil, err
	}
	return NewBuildCache(store, cache.DefaultConfig()), nil
}

// Lookup returns the cached PDF for a source digest. Entries whose blob is
// missing or corrupt are dropped and reported as misses.
func (b *BuildCache) Lookup(sourceDigest string) ([]byte, bool) {
	pdfDigest, ok := b.index.Get(sourceDigest)
	if !ok {
		ref, err := b.store.Ref(sourceDigest)
		if err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				logging.Warn("build cache ref unreadable", "source", sourceDigest, "error", err)
			}
			return nil, false
		}
		pdfDigest = ref
	}

	pdf, err := b.store.Get(pdfDigest)
	if err != nil {
		logging.Warn("build cache entry dropped", "source", sourceDigest, "pdf", pdfDigest, "error", err)
		b.index.Remove(sourceDigest)
		if derr := b.store.DeleteRef(sourceDigest); derr != nil {
			logging.Warn("build cache ref not removed", "source", sourceDigest, "error", derr)
		}
		return nil, false
	}
	b.index.Put(sourceDigest, pdfDigest)
	logging.Debug("build cache hit", "source", sourceDigest, "pdf", pdfDigest)
	return pdf, true
}

// Store records pdf as the output for a source digest and returns the PDF
// digest.
func (b *BuildCache) Store(sourceDigest string, pdf []byte) (string, error) {
	pdfDigest, err := b.store.Put(pdf)
	if err != nil {
		return "", err
	}
	if err := b.store.SetRef(sourceDigest, pdfDigest); err != nil {
		return "", err
	}
	b.index.Put(sourceDigest, pdfDigest)
	return pdfDigest, nil
}

// Stats returns the in-memory index statistics.
func (b *BuildCache) Stats() cache.Stats {
	return b.index.Stats()
}
