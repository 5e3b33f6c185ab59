package parbreak

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus int

const (
	// JobPending means the job is waiting for an idle worker. It sits in
	// the pending queue unless ClearPending has dropped the queue.
	JobPending JobStatus = iota
	// JobInWork means the job is bound to exactly one worker session.
	JobInWork
	// JobDone means a worker ran the job's command and it exited zero.
	JobDone
	// JobFailed means a worker ran the job and it exited non-zero, or the
	// job's session disconnected while the job was in work.
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobInWork:
		return "in_work"
	case JobDone:
		return "done"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is a unit of work: an opaque shell command with an identifier and a
// status. Jobs are created by file ingest or the console `add` command and
// destroyed only by process exit; completed jobs are retained for reporting.
type Job struct {
	ID      JobID
	Command string
	Status  JobStatus

	// StdOut and StdErr hold the command's captured output once the job
	// reaches a terminal status. Empty while PENDING or IN_WORK.
	StdOut string
	StdErr string
}

// Outcome is what a worker reports back for a job it ran.
type Outcome struct {
	Success bool
	StdOut  string
	StdErr  string
}

// Store is the in-memory job table plus the ordered pending queue and the
// failed list. Every method takes s.mu, so one Store is shared by the
// dispatcher, the console and every worker session's read loop, each on its
// own goroutine.
type Store struct {
	mu sync.Mutex

	jobs    map[JobID]*Job
	pending *idQueue
	failed  []JobID

	// WorkAvailable is signaled after add/ingest/restore add a job to the
	// pending queue, and after a push-back of a job that could not be handed
	// to a session. The dispatcher is the sole consumer.
	WorkAvailable chan struct{}

	// history, if set, receives every job that reaches a terminal status.
	history *History
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{
		jobs:          make(map[JobID]*Job),
		pending:       newIDQueue(),
		WorkAvailable: make(chan struct{}, 1),
	}
}

// SetHistory attaches a History sink that records every job reaching a
// terminal status. Optional; nil disables history recording.
func (s *Store) SetHistory(h *History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = h
}

func (s *Store) notifyWorkAvailable() {
	select {
	case s.WorkAvailable <- struct{}{}:
	default:
		// a signal is already pending; the dispatcher hasn't drained it yet.
	}
}

// Add creates a new PENDING job for command and enqueues it.
func (s *Store) Add(command string) JobID {
	s.mu.Lock()
	id := NewJobID()
	s.jobs[id] = &Job{ID: id, Command: command, Status: JobPending}
	s.pending.push(id)
	s.mu.Unlock()
	s.notifyWorkAvailable()
	return id
}

// IngestFile adds one job per non-empty line of r. Commands are taken
// verbatim; no interpolation is performed.
func (s *Store) IngestFile(r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		line := sc.Text()
		if trimmed := trimSpace(line); trimmed == "" {
			continue
		}
		s.Add(line)
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("ingest file: %w", err)
	}
	return n, nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// TakeNext pops the head of the pending queue, transitions it to IN_WORK,
// and returns it. Returns nil if the queue is empty.
func (s *Store) TakeNext() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.pending.pop()
	if !ok {
		return nil
	}
	j := s.jobs[id]
	j.Status = JobInWork
	return j
}

// Complete sets a job's terminal status from a worker outcome.
func (s *Store) Complete(id JobID, outcome Outcome) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("complete: unknown job: %v", id)
	}
	j.StdOut = outcome.StdOut
	j.StdErr = outcome.StdErr
	if outcome.Success {
		j.Status = JobDone
	} else {
		j.Status = JobFailed
		s.failed = append(s.failed, id)
	}
	h := s.history
	s.mu.Unlock()
	if h != nil {
		h.Record(j)
	}
	return nil
}

// PushBack returns an IN_WORK job to PENDING and re-queues it. Used by the
// dispatcher when a session's assign call returns an error. A job whose
// session is lost is not pushed back; it is completed as failed.
func (s *Store) PushBack(id JobID) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("push back: unknown job: %v", id)
	}
	j.Status = JobPending
	s.pending.push(id)
	s.mu.Unlock()
	s.notifyWorkAvailable()
	return nil
}

// ClearPending drops the pending queue. Per spec, job records that were
// queued remain in PENDING status — they are simply unreachable for
// dispatch until a halt-save followed by a restore re-queues them. This is
// deliberate: see DESIGN.md's open-question decision.
func (s *Store) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.clear()
}

// Get returns the job with the given id, or nil.
func (s *Store) Get(id JobID) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// PendingLen reports the number of jobs currently in the pending queue.
func (s *Store) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.len()
}

// FailedIDs returns the append-only list of failed job ids, in the order
// they failed.
func (s *Store) FailedIDs() []JobID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobID, len(s.failed))
	copy(out, s.failed)
	return out
}

// PendingIDs returns the pending queue contents, head first.
func (s *Store) PendingIDs() []JobID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.ids()
}

// All returns every job ever added, in no particular order.
func (s *Store) All() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// restoreAdd re-inserts a job at a known status, bypassing id minting and
// the WorkAvailable signal. Used only by restore, which signals once after
// every record has been loaded.
func (s *Store) restoreAdd(id JobID, command string, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = &Job{ID: id, Command: command, Status: status}
	if status == JobPending {
		s.pending.push(id)
	}
}
