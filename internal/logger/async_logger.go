package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncLogger decouples log formatting from the (possibly slow, rotating)
// underlying writer: Write enqueues and returns immediately, a single
// goroutine drains the queue in order. A full queue drops the message
// rather than blocking the caller — diagnostic logging must never slow
// down parsing or replay.
type AsyncLogger struct {
	w         io.WriteCloser
	msgs      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewAsyncLogger starts draining w via a background goroutine, buffering up
// to bufferSize pending messages.
func NewAsyncLogger(w io.WriteCloser, bufferSize int) *AsyncLogger {
	a := &AsyncLogger{
		w:    w,
		msgs: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncLogger) run() {
	for msg := range a.msgs {
		_, _ = a.w.Write(msg)
	}
	close(a.done)
}

// Write implements io.Writer. It never blocks: if the queue is full the
// message is dropped and a notice is printed to stderr.
func (a *AsyncLogger) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case a.msgs <- buf:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}
	return len(p), nil
}

// Close drains any queued messages and closes the underlying writer.
func (a *AsyncLogger) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.msgs)
		<-a.done
		err = a.w.Close()
	})
	return err
}
