package backend

import "sync"

// Stream is a lazy, finite, non-restartable sequence of text deltas.
//
// The consumer ranges over Deltas() and checks Err() once the channel closes.
// Exactly one terminal outcome is delivered: Close for success, Fail for
// error. The stream does not buffer the full response; accumulation is the
// consumer's job.
type Stream struct {
	ch chan string

	mu     sync.Mutex
	closed bool
	err    error
}

func NewStream(buffer int) *Stream {
	return &Stream{ch: make(chan string, buffer)}
}

// Deltas returns the delta channel. It is closed exactly once, on Close or
// Fail.
func (s *Stream) Deltas() <-chan string {
	return s.ch
}

// Err reports the terminal error. Only meaningful after Deltas is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Push delivers one delta. Producer side only; must not be called after
// Close or Fail.
func (s *Stream) Push(delta string) {
	s.ch <- delta
}

// Close terminates the stream successfully. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Fail terminates the stream with err. The first terminal call wins.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}
