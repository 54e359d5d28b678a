/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

const minQueueCapacity = 16

// itemQueue is an unbounded FIFO queue on top of a growable ring buffer.
type itemQueue struct {
	buf  []Item
	head int
	size int
}

func newItemQueue() *itemQueue {
	return &itemQueue{buf: make([]Item, minQueueCapacity)}
}

func (q *itemQueue) len() int {
	return q.size
}

func (q *itemQueue) push(item Item) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.size)%len(q.buf)] = item
	q.size++
}

func (q *itemQueue) pop() (Item, bool) {
	if q.size == 0 {
		return Item{}, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = Item{} // Release payload for GC.
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	if q.size == 0 {
		q.head = 0
	}
	return item, true
}

// reset drops all items and returns how many were dropped.
func (q *itemQueue) reset() int {
	n := q.size
	q.buf = make([]Item, minQueueCapacity)
	q.head = 0
	q.size = 0
	return n
}

func (q *itemQueue) grow() {
	buf := make([]Item, len(q.buf)*2)
	n := copy(buf, q.buf[q.head:])
	copy(buf[n:], q.buf[:q.head])
	q.buf = buf
	q.head = 0
}
