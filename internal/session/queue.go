package session

import "sync"

// lineQueue is an unbounded FIFO with one producer (the receive
// goroutine) and one consumer (the caller's poll loop).  pop never
// blocks.
type lineQueue struct {
	mu    sync.Mutex
	items []string
	head  int
}

func (q *lineQueue) push(lines ...string) {
	q.mu.Lock()
	q.items = append(q.items, lines...)
	q.mu.Unlock()
}

func (q *lineQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return "", false
	}
	line := q.items[q.head]
	q.items[q.head] = ""
	q.head++

	// Reclaim the consumed prefix once it dominates the slice.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return line, true
}

func (q *lineQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
