package session

import "sync"

// Navigator is the application's router as seen by the session layer.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// Router is an in-process Navigator. It keeps the current path and the navigation history
// and notifies an optional listener on every navigation.
type Router struct {
	mu         sync.Mutex
	current    string
	history    []string
	onNavigate func(path string)
}

var _ Navigator = (*Router)(nil)

func NewRouter(initial string) *Router {
	return &Router{current: initial}
}

func (r *Router) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Router) Navigate(path string) {
	r.mu.Lock()
	r.current = path
	r.history = append(r.history, path)
	fn := r.onNavigate
	r.mu.Unlock()

	if fn != nil {
		fn(path)
	}
}

// OnNavigate registers fn to be called after each navigation.
func (r *Router) OnNavigate(fn func(path string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onNavigate = fn
}

// History returns every path navigated to, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}
