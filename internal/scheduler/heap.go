package scheduler

import (
	"container/heap"
	"time"

	"github.com/mvoevodskiy/botcms/internal/util"
)

type (
	// Job is one scheduled unit of work. A non-zero Every makes the job
	// recurring: after it runs, it is reinserted at At + Every. Path
	// keys the job for replacement and cancellation
	Job struct {
		Func  JobFunc
		At    time.Time
		Every time.Duration
		Path  jobPath

		id    string
		index int
	}

	// jobHeap stores scheduled jobs ordered by run time, with keyed
	// lookup for replacement and prefix cancellation
	jobHeap struct {
		items  []*Job
		byID   map[string]*Job
		byPath *util.PathTree[*Job]
	}

	jobPath []string
)

func newJobHeap() *jobHeap {
	h := &jobHeap{
		byID:   map[string]*Job{},
		byPath: util.NewPathTree[*Job](),
	}
	heap.Init(h)
	return h
}

// insert adds a job or replaces the existing job keyed by the same path
func (h *jobHeap) insert(j *Job) {
	if j == nil || j.Func == nil || j.At.IsZero() {
		return
	}
	if len(j.Path) > 0 {
		j.id = jobPathID(j.Path)
		if old, ok := h.byID[j.id]; ok && old != nil {
			old.Func = j.Func
			old.At = j.At
			old.Every = j.Every
			heap.Fix(h, old.index)
			return
		}
	}
	heap.Push(h, j)
}

// popJob removes and returns the next due job
func (h *jobHeap) popJob() *Job {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*Job)
}

// peek returns the next due job without removing it
func (h *jobHeap) peek() *Job {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// cancel removes the job keyed by the exact path
func (h *jobHeap) cancel(path []string) {
	if len(path) == 0 {
		return
	}
	j, ok := h.byID[jobPathID(path)]
	if !ok || j == nil {
		return
	}
	heap.Remove(h, j.index)
}

// cancelPrefix removes every keyed job under the path prefix
func (h *jobHeap) cancelPrefix(prefix []string) {
	if len(prefix) == 0 {
		return
	}
	h.byPath.DetachWith(prefix, func(j *Job) {
		delete(h.byID, j.id)
		heap.Remove(h, j.index)
	})
}

func (h *jobHeap) Len() int {
	return len(h.items)
}

func (h *jobHeap) Less(i, j int) bool {
	return h.items[i].At.Before(h.items[j].At)
}

func (h *jobHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *jobHeap) Push(x any) {
	j := x.(*Job)
	j.index = len(h.items)
	h.items = append(h.items, j)
	if len(j.Path) > 0 {
		if j.id == "" {
			j.id = jobPathID(j.Path)
		}
		h.byID[j.id] = j
		h.byPath.Insert(j.Path, j)
	}
}

func (h *jobHeap) Pop() any {
	old := h.items
	n := len(old)
	if n == 0 {
		return nil
	}
	j := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	j.index = -1
	h.removeIndexes(j)
	return j
}

func (h *jobHeap) removeIndexes(j *Job) {
	if j == nil || len(j.Path) == 0 {
		return
	}
	delete(h.byID, j.id)
	h.byPath.Remove(j.Path)
}

// jobPathID flattens a path into a collision-free map key
func jobPathID(path []string) string {
	if len(path) == 0 {
		return ""
	}
	n := 0
	for _, p := range path {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	for _, p := range path {
		b = append(b, p...)
		b = append(b, 0)
	}
	return string(b)
}
