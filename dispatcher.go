package parbreak

import (
	"fmt"
	"sort"
	"sync"
)

// Dispatcher matches idle worker sessions to pending jobs. It implements
// the two-phase signalling from spec.md §4.5: a work-available event
// invites every session to say whether it wants work; sessions answer with
// want-work, and only then does the dispatcher pop a job and bind it. This
// keeps the authoritative "am I idle" check inside each session instead of
// the dispatcher maintaining a second, possibly-stale idle set.
type Dispatcher struct {
	mu       sync.Mutex
	store    *Store
	sessions map[int]*Session
	nextID   int

	wantWork chan *Session

	metrics *Metrics

	done chan struct{}
}

// NewDispatcher creates a Dispatcher bound to store. Call Run to start its
// event loop.
func NewDispatcher(store *Store, metrics *Metrics) *Dispatcher {
	return &Dispatcher{
		store:    store,
		sessions: make(map[int]*Session),
		wantWork: make(chan *Session, 64),
		metrics:  metrics,
		done:     make(chan struct{}),
	}
}

// Run drives the dispatch loop until Stop is called; callers run it in its
// own goroutine for the coordinator's lifetime. The loop reacts to the
// store's WorkAvailable signal and to want-work signals. It is not the only
// goroutine touching this state: session read loops and the console call
// into the Store and the Dispatcher directly, and both guard their state
// with a mutex.
func (d *Dispatcher) Run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.store.WorkAvailable:
			d.broadcastWorkAvailable()
		case s := <-d.wantWork:
			d.tryAssign(s)
		}
	}
}

// Stop ends the dispatch loop.
func (d *Dispatcher) Stop() {
	close(d.done)
}

func (d *Dispatcher) broadcastWorkAvailable() {
	d.mu.Lock()
	sessions := make([]*Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		sessions = append(sessions, s)
	}
	d.mu.Unlock()
	for _, s := range sessions {
		if s.isIdle() {
			d.signalWantWork(s)
		}
	}
}

// signalWantWork posts s onto the want-work channel without blocking the
// caller, mirroring the teacher's `go func() { ch <- w }()` pattern for
// signalling across goroutines that must never block on each other.
func (d *Dispatcher) signalWantWork(s *Session) {
	go func() { d.wantWork <- s }()
}

func (d *Dispatcher) tryAssign(s *Session) {
	if !s.isIdle() {
		// the session took an assignment between signalling want-work and
		// this call being served; nothing to do.
		return
	}
	job := d.store.TakeNext()
	if job == nil {
		return
	}
	if err := s.assign(job); err != nil {
		d.store.PushBack(job.ID)
		return
	}
	if d.metrics != nil {
		d.metrics.jobDispatched()
	}
}

func (d *Dispatcher) jobFinished(success bool) {
	if d.metrics == nil {
		return
	}
	if success {
		d.metrics.jobCompleted()
	} else {
		d.metrics.jobFailed()
	}
}

// Accept registers a newly connected worker with the next integer worker
// id and runs its session loop. INIT->IDLE from spec.md §4.3: the session
// is invited to signal want-work immediately.
func (d *Dispatcher) Accept(conn Conn) *Session {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	s := newSession(id, conn, d.store, d)
	d.sessions[id] = s
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.workerConnected()
	}
	go s.run()
	d.signalWantWork(s)
	return s
}

// sessionGone removes a session from the registry once its read loop has
// exited (GONE is terminal).
func (d *Dispatcher) sessionGone(s *Session) {
	d.mu.Lock()
	delete(d.sessions, s.id)
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.workerDisconnected()
	}
}

// Sessions returns all known sessions sorted by worker id, for console
// reporting.
func (d *Dispatcher) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// IdleCount reports how many sessions are currently idle. Used by the
// workers_idle gauge.
func (d *Dispatcher) IdleCount() int {
	d.mu.Lock()
	sessions := make([]*Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		sessions = append(sessions, s)
	}
	d.mu.Unlock()
	n := 0
	for _, s := range sessions {
		if s.isIdle() {
			n++
		}
	}
	return n
}

// Drop closes the session with the given worker id, as requested by the
// `worker drop` console command.
func (d *Dispatcher) Drop(id int) error {
	d.mu.Lock()
	s, ok := d.sessions[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such worker: %d", id)
	}
	s.kill()
	return nil
}
