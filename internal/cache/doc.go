// Package cache provides a generic reference-counted cache.
//
// A Cache maps keys to values owned by Handles. Every Handle returned by
// Get or GetOrCreate is one strong reference; the cache itself only keeps
// a non-owning entry. Once the last reference is released the value is
// freed through the eviction callback and the entry disappears:
//
//	c := cache.New[int, *Texture](func(_ int, t *Texture) { t.Destroy() })
//	h, err := c.GetOrCreate(3, func() (*Texture, error) { return upload(3) })
//	...
//	h.Release() // destroys the texture if nobody else holds it
//
// A lazy cache (NewLazy) keeps zero-reference entries until Sweep runs,
// so a value released and re-requested before the sweep is revived.
//
// # Thread Safety
//
// Cache and Handle are safe for concurrent use.
// A Cache should not be copied after creation (it contains a mutex).
package cache
