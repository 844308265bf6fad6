// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Purpose names the logical timer slot a task occupies. A room holds at most
// one live task per purpose: arming a purpose again replaces the old task.
type Purpose string

const (
	PurposeDiscussion Purpose = "discussion"
	PurposeVoting     Purpose = "voting"
	PurposeGuess      Purpose = "guess"
)

type task struct {
	id       int64
	roomID   string
	purpose  Purpose
	execute  time.Time
	callback func()
	index    int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].execute.Before(q[j].execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	t := x.(*task)
	t.index = n
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	t.index = -1
	*q = old[0 : n-1]
	return t
}

// Scheduler fires one-shot phase-expiry callbacks. Every queued task is
// registered in active, so Cancel and CancelAll silence a pending timer by
// removing it from the queue; no per-room state outlives the room's tasks.
// A callback whose goroutine already launched cannot be retracted here, so
// callers re-validate their own state (phase, round) inside the callback.
// There are no recurring timers.
type Scheduler struct {
	mu      sync.Mutex
	queue   taskQueue
	nextID  int64
	active  map[string]map[Purpose]int64
	trigger chan *task
	quit    chan struct{}
	once    sync.Once
}

// NewScheduler starts a scheduler ticking at 100ms resolution.
func NewScheduler() *Scheduler {
	return NewSchedulerWithTick(100 * time.Millisecond)
}

// NewSchedulerWithTick allows tests to run on a fine tick.
func NewSchedulerWithTick(tick time.Duration) *Scheduler {
	s := &Scheduler{
		queue:   make(taskQueue, 0),
		nextID:  1,
		active:  make(map[string]map[Purpose]int64),
		trigger: make(chan *task, 1000),
		quit:    make(chan struct{}),
	}
	heap.Init(&s.queue)
	go s.process(tick)
	return s
}

// Arm schedules callback after delay for the given room and purpose,
// replacing any live timer for the same purpose. Returns the task id.
func (s *Scheduler) Arm(roomID string, purpose Purpose, delay time.Duration, callback func()) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.active[roomID][purpose]; ok {
		s.removeLocked(prev)
	}

	t := &task{
		id:       s.nextID,
		roomID:   roomID,
		purpose:  purpose,
		execute:  time.Now().Add(delay),
		callback: callback,
	}
	s.nextID++

	heap.Push(&s.queue, t)
	if s.active[roomID] == nil {
		s.active[roomID] = make(map[Purpose]int64)
	}
	s.active[roomID][purpose] = t.id
	return t.id
}

// Cancel drops the live timer for one purpose. Safe to call when the timer
// already fired or was never armed.
func (s *Scheduler) Cancel(roomID string, purpose Purpose) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[roomID][purpose]; ok {
		s.removeLocked(id)
		delete(s.active[roomID], purpose)
		if len(s.active[roomID]) == 0 {
			delete(s.active, roomID)
		}
	}
}

// CancelAll drops every pending timer for the room and forgets the room
// entirely; nothing accumulates for rooms that come and go.
func (s *Scheduler) CancelAll(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.active[roomID] {
		s.removeLocked(id)
	}
	delete(s.active, roomID)
}

// Stop shuts the scheduler down. Pending tasks never fire.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.quit) })
}

func (s *Scheduler) removeLocked(taskID int64) {
	for i, t := range s.queue {
		if t.id == taskID {
			heap.Remove(&s.queue, i)
			return
		}
	}
}

func (s *Scheduler) process(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for s.queue.Len() > 0 {
				t := s.queue[0]
				if t.execute.After(now) {
					break
				}
				heap.Pop(&s.queue)
				if s.active[t.roomID][t.purpose] == t.id {
					delete(s.active[t.roomID], t.purpose)
					if len(s.active[t.roomID]) == 0 {
						delete(s.active, t.roomID)
					}
				}
				s.trigger <- t
			}
			s.mu.Unlock()

		case t := <-s.trigger:
			go t.callback()

		case <-s.quit:
			return
		}
	}
}
