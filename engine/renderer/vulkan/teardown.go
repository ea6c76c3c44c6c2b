package vulkan

import "github.com/spaghettifunk/lumen/engine/core"

/**
 * @brief Collects destroy calls for GPU objects and runs them in reverse
 * order of registration. A constructor pushes the release of every handle
 * it creates, so a failure halfway through releases what exists so far.
 * Not safe for concurrent use; scopes live on the render thread.
 */
type Scope struct {
	name     string
	releases []func()
}

func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Push registers a release to run before everything pushed earlier.
func (s *Scope) Push(release func()) {
	if release == nil {
		return
	}
	s.releases = append(s.releases, release)
}

// Len is the number of pending releases.
func (s *Scope) Len() int {
	return len(s.releases)
}

// Release runs all pending releases, newest first, and empties the scope.
// Calling it again is a no-op until new releases are pushed.
func (s *Scope) Release() {
	if len(s.releases) == 0 {
		return
	}
	core.LogDebug("releasing %d objects from scope '%s'", len(s.releases), s.name)
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
}
