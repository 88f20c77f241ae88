package services

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// laneJob is one queued feedback op. started is claimed either by the lane
// worker (to run it) or by the waiter (to abandon it); whoever wins decides.
type laneJob struct {
	started atomic.Bool
	run     func()
	done    chan struct{}

	// panicErr is set when run panicked; read it only after done is closed.
	panicErr error
}

func newLaneJob(run func()) *laneJob {
	return &laneJob{run: run, done: make(chan struct{})}
}

// abandon reports true when the job was withdrawn before it started.
func (j *laneJob) abandon() bool {
	return j.started.CompareAndSwap(false, true)
}

type lane struct {
	jobs []*laneJob
}

// laneSet runs jobs one at a time per key, in submission order. A lane's
// worker goroutine exits as soon as its queue drains.
type laneSet struct {
	mu    sync.Mutex
	lanes map[string]*lane
	depth int
}

func newLaneSet(depth int) *laneSet {
	return &laneSet{lanes: make(map[string]*lane), depth: depth}
}

// submit enqueues job on key's lane. It reports false when the lane already
// holds depth pending jobs.
func (s *laneSet) submit(key string, job *laneJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lanes[key]
	if !ok {
		l = &lane{}
		s.lanes[key] = l
		go s.serve(key, l)
	}
	if s.depth > 0 && len(l.jobs) >= s.depth {
		return false
	}
	l.jobs = append(l.jobs, job)
	return true
}

func (s *laneSet) serve(key string, l *lane) {
	for {
		s.mu.Lock()
		if len(l.jobs) == 0 {
			delete(s.lanes, key)
			s.mu.Unlock()
			return
		}
		job := l.jobs[0]
		l.jobs[0] = nil
		l.jobs = l.jobs[1:]
		s.mu.Unlock()

		if job.started.CompareAndSwap(false, true) {
			job.execute()
		}
	}
}

// execute runs the job and always closes done, turning a panic into panicErr
// so the lane keeps serving.
func (j *laneJob) execute() {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			j.panicErr = fmt.Errorf("feedback op panicked: %v", r)
		}
	}()
	j.run()
}

// pending returns the number of queued jobs on key, excluding a running one.
func (s *laneSet) pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lanes[key]; ok {
		return len(l.jobs)
	}
	return 0
}
