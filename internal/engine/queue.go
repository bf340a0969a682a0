package engine

import (
	"fmt"

	queuepkg "github.com/Workiva/go-datastructures/queue"
)

// loadQueue carries finished texture loads from pool workers to the tick loop.
type loadQueue struct {
	q *queuepkg.Queue
}

type loadResult struct {
	path string
	size int
	hash uint64
	err  error
}

func newLoadQueue(hint int64) *loadQueue {
	return &loadQueue{q: queuepkg.New(hint)}
}

func (q *loadQueue) put(r loadResult) error {
	return q.q.Put(r)
}

// drain returns everything queued so far without waiting. Only one goroutine may drain.
func (q *loadQueue) drain() ([]loadResult, error) {
	n := q.q.Len()
	if n == 0 {
		return nil, nil
	}
	items, err := q.q.Get(n)
	if err != nil {
		return nil, err
	}
	out := make([]loadResult, 0, len(items))
	for _, item := range items {
		r, ok := item.(loadResult)
		if !ok {
			return out, fmt.Errorf("invalid queue element type %T", item)
		}
		out = append(out, r)
	}
	return out, nil
}

func (q *loadQueue) dispose() {
	q.q.Dispose()
}
