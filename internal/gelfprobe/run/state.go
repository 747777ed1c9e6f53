// Package run holds the context and delivery counters of one probe run.
package run

import (
	"sync"
	"time"

	"github.com/G-Research/gelfprobe/internal/common/util"
)

// State is the run context plus the sent/failed/validated/created counters shared by all workers.
// Every read-modify-write happens under mu; nothing is exposed without going through it.
type State struct {
	runId         string
	startTime     time.Time
	endTime       time.Time
	totalRequests int
	threads       int

	sent      int64
	failed    int64
	validated int64
	created   int64

	clock util.Clock
	mu    sync.Mutex
}

// Snapshot is a consistent copy of State taken under a single lock acquisition.
type Snapshot struct {
	RunId         string
	StartTime     time.Time
	EndTime       time.Time
	TotalRequests int
	Threads       int
	Sent          int64
	Failed        int64
	Validated     int64
	Created       int64
}

func NewState() *State {
	return NewStateWithClock(&util.DefaultClock{})
}

func NewStateWithClock(clock util.Clock) *State {
	return &State{clock: clock}
}

// Reset starts a new run: all counters go back to zero and a fresh run id is assigned.
func (s *State) Reset(totalRequests int, threads int) {
	if threads < 1 {
		threads = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.runId
	s.runId = util.NewUUID()
	for s.runId == previous {
		s.runId = util.NewUUID()
	}
	s.startTime = s.clock.Now()
	s.endTime = time.Time{}
	s.totalRequests = totalRequests
	s.threads = threads
	s.sent = 0
	s.failed = 0
	s.validated = 0
	s.created = 0
}

// NextSequence counts a newly created message and returns its 1-based sequence number.
func (s *State) NextSequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return s.created
}

// RecordSent counts a successful send and returns the new sent count.
func (s *State) RecordSent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return s.sent
}

// RecordFailed counts a failed send and returns the new failed count.
func (s *State) RecordFailed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	return s.failed
}

func (s *State) SetValidated(validated int64) {
	if validated < 0 {
		validated = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validated = validated
}

// Finish records the end time of the run.
func (s *State) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endTime = s.clock.Now()
}

func (s *State) RunId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runId
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RunId:         s.runId,
		StartTime:     s.startTime,
		EndTime:       s.endTime,
		TotalRequests: s.totalRequests,
		Threads:       s.threads,
		Sent:          s.sent,
		Failed:        s.failed,
		Validated:     s.validated,
		Created:       s.created,
	}
}

// DeliveryRatio is validated/sent as a percentage; 0 if nothing was sent.
func (s Snapshot) DeliveryRatio() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Validated) / float64(s.Sent) * 100
}

// RequestedRatio is sent/requested as a percentage; 0 if nothing was requested.
func (s Snapshot) RequestedRatio() float64 {
	if s.TotalRequests <= 0 {
		return 0
	}
	return float64(s.Sent) / float64(s.TotalRequests) * 100
}

// Duration is the time between the start and end of the run, or zero if it has not finished.
func (s Snapshot) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
