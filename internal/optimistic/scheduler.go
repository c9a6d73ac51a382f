package optimistic

import (
	"sync"
	"time"
)

// TaskID identifies a scheduled task.
type TaskID uint64

// Scheduler is a delayed-task queue with explicit cancellation. Every task
// either runs or has its cancel callback invoked, exactly once.
type Scheduler struct {
	mu      sync.Mutex
	next    TaskID
	tasks   map[TaskID]*delayedTask
	stopped bool
	wg      sync.WaitGroup
}

type delayedTask struct {
	timer    *time.Timer
	onCancel func()
}

func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[TaskID]*delayedTask)}
}

// After runs fn once d has elapsed. If the scheduler is already stopped the
// task is cancelled immediately and After returns false.
func (s *Scheduler) After(d time.Duration, fn func(), onCancel func()) (TaskID, bool) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		if onCancel != nil {
			onCancel()
		}
		return 0, false
	}
	s.next++
	id := s.next
	t := &delayedTask{onCancel: onCancel}
	s.tasks[id] = t
	s.wg.Add(1)
	t.timer = time.AfterFunc(d, func() {
		if !s.claim(id) {
			return
		}
		defer s.wg.Done()
		fn()
	})
	s.mu.Unlock()
	return id, true
}

// claim removes id from the queue; whoever claims a task owns its wg slot.
func (s *Scheduler) claim(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

// Cancel drops a pending task. It reports false when the task already ran
// or was cancelled.
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.timer.Stop()
	if t.onCancel != nil {
		t.onCancel()
	}
	s.wg.Done()
	return true
}

// Pending is the number of tasks waiting for their delay to elapse.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every pending task, refuses new ones and waits for tasks
// that are already running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	pending := s.tasks
	s.tasks = make(map[TaskID]*delayedTask)
	s.mu.Unlock()

	for _, t := range pending {
		t.timer.Stop()
		if t.onCancel != nil {
			t.onCancel()
		}
		s.wg.Done()
	}
	s.wg.Wait()
}
