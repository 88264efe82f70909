package store

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serializes operations on the same message id within a process.
// Different ids usually land on different stripes and proceed independently.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocks) index(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}

// lock acquires the stripes for keys in index order and returns the release func.
func (l *keyLocks) lock(keys ...string) func() {
	var held [lockStripes]bool
	for _, k := range keys {
		held[l.index(k)] = true
	}
	var order []int
	for i, h := range held {
		if h {
			order = append(order, i)
		}
	}
	for _, i := range order {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(order) - 1; j >= 0; j-- {
			l.stripes[order[j]].Unlock()
		}
	}
}
