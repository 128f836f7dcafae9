package summary

import "sync"

// Guard admits at most one outstanding summary request per key (a company id).
// An abandoned request keeps its slot until its release func runs.
type Guard struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{pending: map[string]struct{}{}}
}

// Begin claims key. It returns ok=false if a request for key is still running;
// otherwise the caller must call release when the request finishes.
func (g *Guard) Begin(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.pending[key]; busy {
		return nil, false
	}
	g.pending[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.pending, key)
			g.mu.Unlock()
		})
	}, true
}

// InFlight reports whether a request for key is outstanding.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.pending[key]
	return busy
}
