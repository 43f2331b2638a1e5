// Package sched is the simulation's timer queue. Tasks carry a fire time on
// the simulation clock and fire in (time, insertion) order when the tick loop
// advances the clock. Nothing here is goroutine-safe; the tick loop owns it.
package sched

import (
	"container/heap"
	"time"
)

// Handle cancels a scheduled task. The zero Handle is never issued.
type Handle uint64

type task struct {
	at     time.Duration
	seq    uint64
	every  time.Duration // >0 for repeating tasks
	handle Handle
	fn     func()
	index  int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Scheduler is a min-heap of pending tasks plus a simulation clock.
type Scheduler struct {
	now     time.Duration
	seq     uint64
	handles Handle
	queue   taskQueue
	tasks   map[Handle]*task
}

func New() *Scheduler {
	return &Scheduler{
		queue: make(taskQueue, 0, 32),
		tasks: make(map[Handle]*task, 32),
	}
}

// Now is the simulation time reached by the last Advance.
func (s *Scheduler) Now() time.Duration { return s.now }

// Len is the number of pending tasks.
func (s *Scheduler) Len() int { return len(s.queue) }

// After schedules fn to run once, d after now. Negative d is treated as 0;
// such tasks fire on the next Advance, including Advance(0).
func (s *Scheduler) After(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	return s.push(d, 0, fn)
}

// Every schedules fn to run every d, first at now+d. A non-positive period
// schedules nothing and returns the zero Handle.
func (s *Scheduler) Every(d time.Duration, fn func()) Handle {
	if d <= 0 {
		return 0
	}
	return s.push(d, d, fn)
}

func (s *Scheduler) push(d, every time.Duration, fn func()) Handle {
	s.handles++
	s.seq++
	t := &task{
		at:     s.now + d,
		seq:    s.seq,
		every:  every,
		handle: s.handles,
		fn:     fn,
	}
	heap.Push(&s.queue, t)
	s.tasks[t.handle] = t
	return t.handle
}

// Cancel removes a pending task. Unknown, fired or already cancelled handles
// report false.
func (s *Scheduler) Cancel(h Handle) bool {
	t, ok := s.tasks[h]
	if !ok {
		return false
	}
	delete(s.tasks, h)
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	return true
}

// Pending reports whether h is still scheduled.
func (s *Scheduler) Pending(h Handle) bool {
	_, ok := s.tasks[h]
	return ok
}

// Remaining returns how long until h fires, or false if it is not pending.
func (s *Scheduler) Remaining(h Handle) (time.Duration, bool) {
	t, ok := s.tasks[h]
	if !ok {
		return 0, false
	}
	return t.at - s.now, true
}

// Advance moves the clock forward by dt and fires every task due on the way,
// in order. Callbacks see Now() equal to their own fire time and may schedule
// or cancel tasks; anything they schedule inside the window also fires.
// It returns the number of callbacks run.
func (s *Scheduler) Advance(dt time.Duration) int {
	if dt < 0 {
		dt = 0
	}
	target := s.now + dt
	fired := 0
	for len(s.queue) > 0 && s.queue[0].at <= target {
		t := heap.Pop(&s.queue).(*task)
		s.now = t.at
		if t.every > 0 {
			// Re-queue before running so the callback can cancel its own handle.
			s.seq++
			t.at += t.every
			t.seq = s.seq
			heap.Push(&s.queue, t)
		} else {
			delete(s.tasks, t.handle)
		}
		t.fn()
		fired++
	}
	s.now = target
	return fired
}
