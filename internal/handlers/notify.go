package handlers

import "sync"

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient message shown once on the next rendered page.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Notifier queues notices until a page takes them.
type Notifier struct {
	mu    sync.Mutex
	queue []Notice
}

func (n *Notifier) Success(msg string) {
	n.push(Notice{Kind: NoticeSuccess, Message: msg})
}

func (n *Notifier) Error(msg string) {
	n.push(Notice{Kind: NoticeError, Message: msg})
}

func (n *Notifier) push(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = append(n.queue, notice)
}

// Drain returns the queued notices and empties the queue.
func (n *Notifier) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queue
	n.queue = nil
	return out
}
