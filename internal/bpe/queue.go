package bpe

import (
	"cmp"

	"github.com/emirpasic/gods/v2/trees/binaryheap"
)

type queueEntry struct {
	pair  Pair
	count int64
}

// mergeQueue is a max-heap of candidate pairs. Entry counts are upper bounds
// of the live counts and are refreshed lazily by PairStats.Top.
type mergeQueue struct {
	heap *binaryheap.Heap[queueEntry]
}

func newMergeQueue(vocab *Vocabulary) *mergeQueue {
	return &mergeQueue{
		heap: binaryheap.NewWith(func(a, b queueEntry) int {
			if a.count != b.count {
				return cmp.Compare(b.count, a.count)
			}
			return vocab.comparePairs(b.pair, a.pair)
		}),
	}
}

func (q *mergeQueue) push(entries ...queueEntry) {
	if len(entries) > 0 {
		q.heap.Push(entries...)
	}
}

func (q *mergeQueue) peek() (queueEntry, bool) { return q.heap.Peek() }

func (q *mergeQueue) pop() { q.heap.Pop() }

func (q *mergeQueue) len() int { return q.heap.Size() }
