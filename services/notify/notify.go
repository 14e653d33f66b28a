// Package notifysvc delivers the transient notifications raised by the core services.
package notifysvc

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/PWRApex/english-prep-companion/core"
)

var nowFunc = time.Now // mockable

// Queue keeps notifications until they are drained or older than the ttl.
type Queue struct {
	ttl time.Duration

	mu    sync.Mutex
	items []core.Notification
}

var _ core.Notifier = (*Queue)(nil) // interface compliance check

func NewQueue(ttl time.Duration) *Queue {
	return &Queue{ttl: ttl}
}

func (q *Queue) Notify(n core.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = nowFunc()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.live(), n)
}

// Drain returns the live notifications, oldest first, and empties the queue.
func (q *Queue) Drain() []core.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.live()
	q.items = nil
	if items == nil {
		return []core.Notification{}
	}
	return items
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.live()
	return len(q.items)
}

// live drops expired items; the caller holds the lock.
func (q *Queue) live() []core.Notification {
	if q.ttl <= 0 {
		return q.items
	}
	cutoff := nowFunc().Add(-q.ttl)
	kept := q.items[:0]
	for _, n := range q.items {
		if n.CreatedAt.After(cutoff) {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Writer prints each notification on its own line.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

var _ core.Notifier = (*Writer)(nil)

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Notify(n core.Notification) {
	mark := "✓"
	if n.Destructive() {
		mark = "✗"
	}
	line := mark + " " + n.Title
	if n.Description != "" {
		line += ": " + n.Description
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintln(w.out, line)
}

// Multi fans a notification out to every notifier.
type Multi []core.Notifier

func (m Multi) Notify(n core.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
