package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Query is what a source is asked for.
type Query struct {
	Keywords    string
	Orientation string
	StartPage   int
	PageSize    int
	SecretKey   string
}

// Item is one downloadable result. Exactly one of ImageURL or VideoURL is
// expected to be set.
type Item struct {
	FileName string `json:"fileName"`
	FileExt  string `json:"fileExt"`
	ImageURL string `json:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Author   string `json:"author,omitempty"`
	Link     string `json:"link,omitempty"`
	Title    string `json:"title,omitempty"`
	Desc     string `json:"desc,omitempty"`
}

// URL returns the item's download location.
func (it Item) URL() string {
	if it.ImageURL != "" {
		return it.ImageURL
	}
	return it.VideoURL
}

// SearchResult is one page of items.
type SearchResult struct {
	List  []Item `json:"list"`
	Total int    `json:"total"`
}

// Source is a remote wallpaper provider.
type Source interface {
	Name() string
	Search(ctx context.Context, q Query) (SearchResult, error)
}

// Registry holds sources by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates a registry holding the given sources.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source)}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a source.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get looks up a source by name.
func (r *Registry) Get(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return s, nil
}

// Has reports whether name is a registered source.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[name]
	return ok
}

// Names returns registered source names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for n := range r.sources {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
