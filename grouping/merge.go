package grouping

import (
	"container/heap"

	"github.com/vx-labs/shuffle/shuffle"
)

type head struct {
	entry  *shuffle.Entry
	reader int
}

// mergeHeap orders reader heads by (key, secondary key, position, reader).
type mergeHeap []head

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if c := shuffle.CompareEntries(h[i].entry, h[j].entry); c != 0 {
		return c < 0
	}
	return h[i].reader < h[j].reader
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) {
	*h = append(*h, x.(head))
}
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *mergeHeap) peek() (head, bool) {
	if len(*h) == 0 {
		return head{}, false
	}
	return (*h)[0], true
}

func (h *mergeHeap) push(v head) { heap.Push(h, v) }
func (h *mergeHeap) pop() head   { return heap.Pop(h).(head) }
