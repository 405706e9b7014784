// Package browser resolves the theory tree and content for the browsing
// views. Remote failures never escape this package: structure resolution
// falls back to the demo tree and content resolution to the demo table.
package browser

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/theoria/internal/apperr"
	"github.com/starford/theoria/internal/demo"
	"github.com/starford/theoria/internal/theory"
)

// Not-found messages shown inline by the views.
const (
	MsgDemoNotFound = "Requested content not found in demo data."
	MsgLoadFailed   = "Failed to load the requested content. It might not exist or there was a server error."
)

// Source tells where a structure came from.
type Source string

const (
	SourceLive Source = "live"
	SourceDemo Source = "demo"
)

// Outcome tells how a content request was satisfied.
type Outcome string

const (
	OutcomeLive      Outcome = "live"
	OutcomeDemo      Outcome = "demo"
	OutcomeRecovered Outcome = "recovered"
	OutcomeNotFound  Outcome = "not_found"
)

// Fetcher is the remote side of the resolver. *client.Client satisfies it.
type Fetcher interface {
	Structure(ctx context.Context) (*theory.Structure, error)
	Content(ctx context.Context, path string) (theory.Rendered, error)
}

// Observer is told about every resolution.
type Observer interface {
	StructureResolved(src Source, cause string)
	ContentResolved(outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) StructureResolved(Source, string) {}
func (nopObserver) ContentResolved(Outcome)          {}

// StructureResult is the outcome of ResolveStructure. Err holds the reason
// for falling back and is nil for live results.
type StructureResult struct {
	Structure *theory.Structure
	Source    Source
	Err       error
}

// UsingFallback reports whether the demo tree is in use.
func (r StructureResult) UsingFallback() bool { return r.Source == SourceDemo }

// NotFoundError is returned by ResolveContent when no source has the path.
type NotFoundError struct {
	Path    string
	Message string
	Cause   error
}

func (e *NotFoundError) Error() string { return e.Message }

// Unwrap exposes apperr.ErrNotFound and the remote failure, if any.
func (e *NotFoundError) Unwrap() []error {
	if e.Cause == nil {
		return []error{apperr.ErrNotFound}
	}
	return []error{apperr.ErrNotFound, e.Cause}
}

// Resolver turns remote fetches into total functions backed by demo data.
type Resolver struct {
	fetcher  Fetcher
	logger   *slog.Logger
	observer Observer
	fallback func() *theory.Structure
	lookup   func(path string) (theory.Rendered, bool)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver reports resolutions to o.
func WithObserver(o Observer) Option {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithFallback replaces the embedded demo tree and content table.
func WithFallback(structure func() *theory.Structure, lookup func(string) (theory.Rendered, bool)) Option {
	return func(r *Resolver) {
		if structure != nil {
			r.fallback = structure
		}
		if lookup != nil {
			r.lookup = lookup
		}
	}
}

// NewResolver returns a resolver over f. A nil f behaves as an unreachable
// backend.
func NewResolver(f Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:  f,
		logger:   slog.Default(),
		observer: nopObserver{},
		fallback: demo.Structure,
		lookup:   demo.Lookup,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var errNoBackend = errors.Join(apperr.ErrNetwork, errors.New("no backend configured"))

// ResolveStructure makes exactly one fetch attempt. On any failure it
// returns the demo tree with Source set to SourceDemo.
func (r *Resolver) ResolveStructure(ctx context.Context) StructureResult {
	var (
		s   *theory.Structure
		err = errNoBackend
	)
	if r.fetcher != nil {
		s, err = r.fetcher.Structure(ctx)
	}
	if err == nil && s == nil {
		err = apperr.ErrMalformed
	}
	if err == nil {
		r.observer.StructureResolved(SourceLive, "")
		return StructureResult{Structure: s, Source: SourceLive}
	}

	cause := Cause(err)
	r.logger.Warn("browser: structure unavailable, using demo data",
		slog.String("cause", cause),
		slog.String("error", err.Error()),
	)
	r.observer.StructureResolved(SourceDemo, cause)
	return StructureResult{Structure: r.fallback(), Source: SourceDemo, Err: err}
}

// ResolveContent returns the body for path. With usingFallback set only
// the demo table is consulted and no request is made. Otherwise a remote
// failure is recovered from the demo table when it has the path. The
// returned error is always a *NotFoundError.
func (r *Resolver) ResolveContent(ctx context.Context, path string, usingFallback bool) (theory.Rendered, error) {
	if usingFallback || r.fetcher == nil {
		if c, ok := r.lookup(path); ok {
			r.observer.ContentResolved(OutcomeDemo)
			return c, nil
		}
		r.observer.ContentResolved(OutcomeNotFound)
		var cause error
		if !usingFallback {
			cause = errNoBackend
		}
		return theory.Rendered{}, &NotFoundError{Path: path, Message: r.notFoundMessage(usingFallback), Cause: cause}
	}

	c, err := r.fetcher.Content(ctx, path)
	if err == nil {
		r.observer.ContentResolved(OutcomeLive)
		return c, nil
	}

	if local, ok := r.lookup(path); ok {
		r.logger.Info("browser: content recovered from demo data",
			slog.String("path", path),
			slog.String("cause", Cause(err)),
		)
		r.observer.ContentResolved(OutcomeRecovered)
		return local, nil
	}

	r.logger.Warn("browser: content not found",
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
	r.observer.ContentResolved(OutcomeNotFound)
	return theory.Rendered{}, &NotFoundError{Path: path, Message: MsgLoadFailed, Cause: err}
}

func (r *Resolver) notFoundMessage(usingFallback bool) string {
	if usingFallback {
		return MsgDemoNotFound
	}
	return MsgLoadFailed
}

// Cause classifies a fetch error for logs and metrics.
func Cause(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrMalformed):
		return "malformed"
	case errors.Is(err, apperr.ErrNetwork), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "network"
	default:
		return "other"
	}
}
