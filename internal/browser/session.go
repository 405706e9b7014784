package browser

import (
	"context"
	"sync"

	"github.com/starford/theoria/internal/theory"
)

// State is the browsing session's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateStructureLoading
	StateStructureReady
	StateContentLoading
	StateContentReady
	StateContentNotFound
)

var stateNames = [...]string{
	"idle",
	"structure_loading",
	"structure_ready",
	"content_loading",
	"content_ready",
	"content_not_found",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// View is a point-in-time copy of a session.
type View struct {
	State     State
	Source    Source
	Structure *theory.Structure
	Path      string
	Content   theory.Rendered
	Err       error
}

// UsingFallback reports whether the demo tree is in use.
func (v View) UsingFallback() bool { return v.Source == SourceDemo }

// Session is one topic-browsing session. The structure is resolved once;
// every Select starts a content fetch tagged with a new generation and
// only the completion carrying the latest generation is applied. Older
// fetches run to completion and are discarded.
type Session struct {
	resolver *Resolver

	loadOnce sync.Once
	inflight sync.WaitGroup

	mu        sync.Mutex
	state     State
	structure StructureResult
	gen       uint64
	path      string
	content   theory.Rendered
	err       error
}

// NewSession returns an idle session.
func NewSession(r *Resolver) *Session {
	return &Session{resolver: r}
}

// Load resolves the structure. Only the first call fetches; later calls
// return the same result.
func (s *Session) Load(ctx context.Context) StructureResult {
	s.loadOnce.Do(func() {
		s.mu.Lock()
		s.state = StateStructureLoading
		s.mu.Unlock()

		res := s.resolver.ResolveStructure(ctx)

		s.mu.Lock()
		s.structure = res
		s.state = StateStructureReady
		s.mu.Unlock()
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structure
}

// Select starts fetching path and returns the request's generation. The
// structure is loaded first if needed.
func (s *Session) Select(ctx context.Context, path string) uint64 {
	fallback := s.Load(ctx).UsingFallback()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.path = path
	s.state = StateContentLoading
	s.mu.Unlock()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		c, err := s.resolver.ResolveContent(ctx, path, fallback)
		s.apply(gen, c, err)
	}()
	return gen
}

func (s *Session) apply(gen uint64, c theory.Rendered, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if err != nil {
		s.state = StateContentNotFound
		s.content = theory.Rendered{}
		s.err = err
		return
	}
	s.state = StateContentReady
	s.content = c
	s.err = nil
}

// Wait blocks until every started fetch has finished.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Topic returns the root category of id, or nil when the topic is unknown
// or the structure has not been loaded.
func (s *Session) Topic(id string) *theory.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structure.Structure.Topic(id)
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		State:     s.state,
		Source:    s.structure.Source,
		Structure: s.structure.Structure,
		Path:      s.path,
		Content:   s.content,
		Err:       s.err,
	}
}
