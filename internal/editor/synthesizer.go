package editor

import (
	"context"
	"sync"
)

// Directions computes a routed polyline that passes through waypoints in order.
type Directions interface {
	Route(ctx context.Context, waypoints []Point) ([]Point, error)
}

type pathRequest struct {
	token  uint64
	cancel context.CancelFunc
}

// Synthesizer keeps track of directions requests per route. Only the latest
// request of a route may write its result; older ones are cancelled and
// their responses dropped.
//
// The Synthesizer is not safe for concurrent use on its own. Its methods are
// called with the Editor lock held; only the directions call itself runs
// outside the lock.
type Synthesizer struct {
	directions Directions
	tokens     uint64
	inflight   map[uint64]pathRequest
	wg         sync.WaitGroup
}

func NewSynthesizer(d Directions) *Synthesizer {
	return &Synthesizer{
		directions: d,
		inflight:   make(map[uint64]pathRequest),
	}
}

// begin registers a request for the route with the given handle and cancels
// the request it supersedes.
func (s *Synthesizer) begin(handle uint64) (context.Context, uint64) {
	if prev, ok := s.inflight[handle]; ok {
		prev.cancel()
	}
	s.tokens++
	ctx, cancel := context.WithCancel(context.Background())
	s.inflight[handle] = pathRequest{token: s.tokens, cancel: cancel}
	return ctx, s.tokens
}

func (s *Synthesizer) current(handle, token uint64) bool {
	req, ok := s.inflight[handle]
	return ok && req.token == token
}

func (s *Synthesizer) finish(handle, token uint64) {
	if req, ok := s.inflight[handle]; ok && req.token == token {
		req.cancel()
		delete(s.inflight, handle)
	}
}

func (s *Synthesizer) cancel(handle uint64) {
	if req, ok := s.inflight[handle]; ok {
		req.cancel()
		delete(s.inflight, handle)
	}
}

func (s *Synthesizer) cancelAll() {
	for h, req := range s.inflight {
		req.cancel()
		delete(s.inflight, h)
	}
}

func (s *Synthesizer) inFlight(handle uint64) bool {
	_, ok := s.inflight[handle]
	return ok
}

func (s *Synthesizer) pending() int {
	return len(s.inflight)
}

// distinctPoints counts the different coordinates in pts.
func distinctPoints(pts []Point) int {
	seen := make(map[Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}
