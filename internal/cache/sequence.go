package cache

import "container/heap"

// idHeap is a min-heap of released sequence ids.
type idHeap []int

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *idHeap) Push(x any) { *h = append(*h, x.(int)) }

func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// sequencePool hands out the lowest unused positive id for one prefix.
// Every id in [1, high] is either in used or in free.
type sequencePool struct {
	used map[int]struct{}
	free idHeap
	high int
}

func newSequencePool() *sequencePool {
	return &sequencePool{used: make(map[int]struct{})}
}

func (p *sequencePool) acquire() int {
	var id int
	if p.free.Len() > 0 {
		id = heap.Pop(&p.free).(int)
	} else {
		p.high++
		id = p.high
	}
	p.used[id] = struct{}{}
	return id
}

func (p *sequencePool) release(id int) {
	if _, ok := p.used[id]; !ok {
		return
	}
	delete(p.used, id)
	heap.Push(&p.free, id)
}

func (p *sequencePool) empty() bool {
	return len(p.used) == 0
}

func (p *sequencePool) max() int {
	highest := 0
	for id := range p.used {
		if id > highest {
			highest = id
		}
	}
	return highest
}
