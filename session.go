package parbreak

import (
	"fmt"
	"log"
	"sync"
	"time"
)

type sessionStatus int

const (
	sessionIdle sessionStatus = iota
	sessionBusy
	sessionGone
)

// Session is the coordinator-side state for one connected worker. It tracks
// at most one outstanding assignment and the time it was sent, and runs its
// own read loop, mirroring the INIT->IDLE->BUSY->GONE state machine from
// spec.md §4.3.
type Session struct {
	mu sync.Mutex

	id     int
	conn   Conn
	status sessionStatus

	assignment JobID
	start      time.Time

	store *Store
	disp  *Dispatcher
}

func newSession(id int, conn Conn, store *Store, disp *Dispatcher) *Session {
	return &Session{
		id:     id,
		conn:   conn,
		status: sessionIdle,
		store:  store,
		disp:   disp,
	}
}

// ID is the session's worker id, unique for the coordinator's lifetime.
func (s *Session) ID() int {
	return s.id
}

// name is the peer origin string, or "<zombie>" once the socket is gone.
func (s *Session) name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == sessionGone {
		return "<zombie>"
	}
	return s.conn.RemoteName()
}

func (s *Session) hasAssignment() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignment.Valid()
}

func (s *Session) assignmentID() JobID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignment
}

// statusString renders the one-line form used by the `status` console
// command: "idle" or the assigned job's id.
func (s *Session) statusString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignment.Valid() {
		return string(s.assignment)
	}
	return "idle"
}

func (s *Session) isIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == sessionIdle
}

// assign binds job to this session: IDLE->BUSY. Sends the Assignment frame
// on the wire before returning.
func (s *Session) assign(job *Job) error {
	s.mu.Lock()
	if s.status != sessionIdle {
		s.mu.Unlock()
		return fmt.Errorf("session %d is not idle", s.id)
	}
	s.assignment = job.ID
	s.start = time.Now()
	s.status = sessionBusy
	s.mu.Unlock()

	data, err := EncodeAssignment(job.ID, job.Command)
	if err != nil {
		return fmt.Errorf("encode assignment: %w", err)
	}
	if err := s.conn.WriteMessage(data); err != nil {
		return fmt.Errorf("send assignment: %w", err)
	}
	return nil
}

// durationSeconds reports the whole seconds elapsed since the current
// assignment was sent, per spec.md §9's integer-seconds log-shape rule.
func (s *Session) durationSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(time.Since(s.start).Round(time.Second).Seconds())
}

// run is the session's read loop. It blocks until the connection closes or
// a protocol violation forces the session down; callers run it in its own
// goroutine and the loop posts every effect back through s.store/s.disp,
// which are themselves safe for concurrent use from many sessions.
func (s *Session) run() {
	defer s.goneBecauseClosed()
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := Decode(data)
		if err != nil {
			log.Printf("worker %d: malformed message, ignoring: %v", s.id, err)
			continue
		}
		switch msg.Variant {
		case VariantAssignment:
			log.Printf("worker %d: confusing message (assignment arrived at coordinator), dropping", s.id)
		case VariantSuccess:
			s.handleOutcome(msg.Outcome, true)
		case VariantFailed:
			s.handleOutcome(msg.Outcome, false)
		case VariantNone:
			log.Printf("worker %d: unrecognized message, ignoring", s.id)
		}
	}
}

func (s *Session) handleOutcome(p OutcomePayload, success bool) {
	id, err := parseJobID(p.ID)
	if err != nil {
		log.Printf("worker %d: malformed job id in outcome, ignoring: %v", s.id, err)
		return
	}
	s.mu.Lock()
	current := s.assignment
	if current != id {
		s.mu.Unlock()
		log.Printf("worker %d: protocol violation: outcome for %v but assigned %v, closing", s.id, id, current)
		s.kill()
		return
	}
	s.assignment = ""
	s.status = sessionIdle
	s.mu.Unlock()

	verb := "failed"
	if success {
		verb = "done"
	}
	log.Printf("worker %d: job %v %s in %ds", s.id, id, verb, s.durationSeconds())

	if err := s.store.Complete(id, Outcome{Success: success, StdOut: p.StdOut, StdErr: p.StdErr}); err != nil {
		log.Printf("worker %d: %v", s.id, err)
	}
	s.disp.jobFinished(success)
	s.disp.signalWantWork(s)
}

// goneBecauseClosed runs once the read loop returns. If an assignment was
// outstanding, it is synthesized as Failed so the job doesn't sit in
// IN_WORK forever.
func (s *Session) goneBecauseClosed() {
	s.mu.Lock()
	outstanding := s.assignment
	s.status = sessionGone
	s.assignment = ""
	s.mu.Unlock()

	s.conn.Close()
	s.disp.sessionGone(s)

	if outstanding.Valid() {
		err := s.store.Complete(outstanding, Outcome{
			Success: false,
			StdOut:  "Connection closed",
		})
		if err != nil {
			log.Printf("worker %d: %v", s.id, err)
		}
		s.disp.jobFinished(false)
	}
}

// kill closes the session's socket, as requested by the operator through
// `worker drop`. The read loop's own error path performs the GONE cleanup.
func (s *Session) kill() {
	s.conn.Close()
}
