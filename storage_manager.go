package textbatch

import (
	"fmt"

	"github.com/gogpu/textbatch/backend"
	"github.com/gogpu/textbatch/internal/cache"
)

// CacheStats contains lookup statistics of the font registry.
type CacheStats = cache.Stats

// StorageManager maps font configurations to shared FontStorage values.
// Storages nobody references stay cached until ReleaseUnused.
type StorageManager struct {
	backend backend.Backend
	cfg     Config
	fonts   *cache.Cache[FontKey, *FontStorage]
}

func newStorageManager(b backend.Backend, cfg Config) *StorageManager {
	return &StorageManager{
		backend: b,
		cfg:     cfg,
		fonts: cache.NewLazy(func(key FontKey, s *FontStorage) {
			s.close()
			Logger().Debug("textbatch: font storage freed", "font", key)
		}),
	}
}

// Acquire returns the storage for key, loading the font on a miss.
// The caller must Release the storage when done with it.
func (m *StorageManager) Acquire(key FontKey) (*FontStorage, error) {
	h, err := m.fonts.GetOrCreate(key, func() (*FontStorage, error) {
		r, err := m.cfg.NewRasterizer()
		if err != nil {
			return nil, err
		}
		if err := r.LoadFont(key.Path, key.Width, key.Height); err != nil {
			_ = r.Close()
			return nil, err
		}
		Logger().Debug("textbatch: font loaded", "font", key, "height", r.FontHeight())
		return newFontStorage(key, r, m.backend, m.cfg), nil
	})
	if err != nil {
		Logger().Error("textbatch: font load failed", "font", key, "err", err)
		return nil, fmt.Errorf("textbatch: acquire %s: %w", key, err)
	}
	s := h.Value()
	s.handle = h
	return s, nil
}

// ReleaseUnused frees every storage without references and returns how
// many were freed.
func (m *StorageManager) ReleaseUnused() int {
	n := m.fonts.Sweep()
	if n > 0 {
		Logger().Debug("textbatch: unused fonts released", "count", n)
	}
	return n
}

// Len returns the number of cached storages, used or not.
func (m *StorageManager) Len() int { return m.fonts.Len() }

// Keys returns the cached font configurations in unspecified order.
func (m *StorageManager) Keys() []FontKey { return m.fonts.Keys() }

// Stats returns lookup statistics of the registry.
func (m *StorageManager) Stats() CacheStats { return m.fonts.Stats() }
