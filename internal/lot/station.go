package lot

import (
	"context"
	"errors"
	"time"
)

// queueTimeout bounds how long a caller waits for the owning goroutine.
const queueTimeout = 2 * time.Second

// ErrStationBusy is returned when the owning goroutine does not pick up a
// request within queueTimeout.
var ErrStationBusy = errors.New("scan station is busy")

// ErrStationClosed is returned for requests made after Close.
var ErrStationClosed = errors.New("scan station is closed")

// transition is one serialized operation on the owned session.
type transition func(Session) (Session, []Effect, error)

type request struct {
	apply transition
	reply chan response
}

type response struct {
	session Session
	effects []Effect
	err     error
}

// Station owns a Session on a single goroutine. Every operation is sent to
// that goroutine over a channel and runs to completion before the next one,
// so concurrent callers (HTTP handlers) never share the session directly.
type Station struct {
	requests chan request
	quit     chan struct{}
	done     chan struct{}
}

// NewStation starts the owning goroutine for s.
func NewStation(s Session) *Station {
	st := &Station{
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go st.loop(s)
	return st
}

func (st *Station) loop(s Session) {
	defer close(st.done)
	for {
		select {
		case req := <-st.requests:
			next, effects, err := req.apply(s)
			if err == nil {
				s = next
			}
			req.reply <- response{session: s, effects: effects, err: err}
		case <-st.quit:
			return
		}
	}
}

// do queues fn and waits for its result. Once the loop has taken the
// request, fn is applied and do returns its outcome even if ctx ends in the
// meantime, so a caller never sees an error for a change that was made.
func (st *Station) do(ctx context.Context, fn transition) (Session, []Effect, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, nil, err
	}
	req := request{apply: fn, reply: make(chan response, 1)}

	select {
	case st.requests <- req:
	case <-st.done:
		return Session{}, nil, ErrStationClosed
	case <-ctx.Done():
		return Session{}, nil, ctx.Err()
	case <-time.After(queueTimeout):
		return Session{}, nil, ErrStationBusy
	}

	res := <-req.reply
	return res.session, res.effects, res.err
}

// Submit runs Session.Submit on the owned session. The returned session is
// the state after the call (unchanged on rejection).
func (st *Station) Submit(ctx context.Context, raw string) (Session, []Effect, error) {
	return st.do(ctx, func(s Session) (Session, []Effect, error) {
		return s.Submit(raw)
	})
}

// Reset runs Session.ResetLot on the owned session.
func (st *Station) Reset(ctx context.Context) (Session, []Effect, error) {
	return st.do(ctx, func(s Session) (Session, []Effect, error) {
		next, effects := s.ResetLot()
		return next, effects, nil
	})
}

// Snapshot returns the current session without changing it.
func (st *Station) Snapshot(ctx context.Context) (Session, error) {
	s, _, err := st.do(ctx, func(s Session) (Session, []Effect, error) {
		return s, nil, nil
	})
	return s, err
}

// Close stops the owning goroutine and waits for it to exit.
func (st *Station) Close() {
	select {
	case <-st.quit:
	default:
		close(st.quit)
	}
	<-st.done
}
