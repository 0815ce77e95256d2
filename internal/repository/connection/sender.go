package connection

import (
	"errors"
	"sync"
)

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// JSONWriter is the slice of *websocket.Conn the sender needs. Tests
// substitute a recorder.
type JSONWriter interface {
	WriteJSON(v any) error
}

// Sender decouples fan-out from individual connection speed. Send
// enqueues and never blocks: a member whose queue is full loses that
// frame, nobody else is slowed down. A single Run goroutine owns all
// writes to the underlying connection.
type Sender struct {
	w         JSONWriter
	queue     chan any
	closeOnce sync.Once
	closed    chan struct{}
}

func NewSender(w JSONWriter, queueSize int) *Sender {
	return &Sender{
		w:      w,
		queue:  make(chan any, queueSize),
		closed: make(chan struct{}),
	}
}

// Send queues a message for delivery. It reports false when the frame
// was dropped because the sender is closed or the queue is full.
func (s *Sender) Send(v any) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	select {
	case s.queue <- v:
		return true
	default:
		return false
	}
}

// Run drains the queue until Close is called or a write fails. It must
// be the only goroutine writing to the connection.
func (s *Sender) Run() {
	for {
		select {
		case <-s.closed:
			return
		case v := <-s.queue:
			if err := s.w.WriteJSON(v); err != nil {
				return
			}
		}
	}
}

func (s *Sender) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}
