// Package playback replaces the browser's object URLs: every playable file
// gets a transient URL served by a local HTTP server until it is revoked.
package playback

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jdefrancesco/vidshelf/internal/catalog"
	"github.com/jdefrancesco/vidshelf/internal/vlog"
)

const playPrefix = "/play/"

// Registry tracks the live playback URLs. It is safe for concurrent use: the
// TUI allocates and revokes while the server resolves.
type Registry struct {
	mu      sync.RWMutex
	baseURL string
	sources map[string]catalog.Source
}

// NewRegistry returns a registry issuing URLs under baseURL, e.g.
// "http://127.0.0.1:8765".
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		sources: make(map[string]catalog.Source),
	}
}

// Allocate registers src and returns its playback URL.
func (r *Registry) Allocate(src catalog.Source) string {
	token := uuid.NewString()

	r.mu.Lock()
	r.sources[token] = src
	r.mu.Unlock()

	URLsAllocatedTotal.Inc()
	return r.baseURL + playPrefix + token
}

// Revoke releases url. Unknown or already revoked URLs are ignored.
func (r *Registry) Revoke(url string) {
	token, ok := r.tokenOf(url)
	if !ok {
		vlog.Vlogger.Debugf("Revoke of foreign URL %q ignored", url)
		return
	}

	r.mu.Lock()
	_, live := r.sources[token]
	delete(r.sources, token)
	r.mu.Unlock()

	if live {
		URLsRevokedTotal.Inc()
	}
}

// RevokeAll releases every live URL and returns how many there were.
func (r *Registry) RevokeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.sources)
	r.sources = make(map[string]catalog.Source)
	URLsRevokedTotal.Add(float64(n))
	return n
}

// Resolve returns the source registered under token.
func (r *Registry) Resolve(token string) (catalog.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[token]
	return src, ok
}

// Len returns the number of live URLs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// BaseURL returns the prefix shared by every URL this registry issues.
func (r *Registry) BaseURL() string { return r.baseURL }

func (r *Registry) tokenOf(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, r.baseURL+playPrefix)
	if !ok || rest == "" {
		return "", false
	}
	if _, err := uuid.Parse(rest); err != nil {
		return "", false
	}
	return rest, true
}
