package parbreak

import (
	"bytes"
	"log"
	"os/exec"
	"sync"
)

// Runner is the worker-side process supervisor: it receives an Assignment,
// spawns a shell running the command, and reports Success or Failed back
// over conn. One Runner serves exactly one connection for its lifetime,
// matching spec.md §4.2's "socket close: process exits" rule — Run returns
// once the connection is gone.
type Runner struct {
	conn  Conn
	shell string

	mu     sync.Mutex
	active JobID
}

// NewRunner creates a Runner that executes commands with shell (eg "/bin/sh")
// passed as `shell -c command`.
func NewRunner(conn Conn, shell string) *Runner {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Runner{conn: conn, shell: shell}
}

// Run blocks, dispatching every Assignment that arrives until the
// connection closes.
func (r *Runner) Run() {
	for {
		data, err := r.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := Decode(data)
		if err != nil {
			log.Printf("malformed message, ignoring: %v", err)
			continue
		}
		switch msg.Variant {
		case VariantAssignment:
			r.handleAssignment(msg.Assignment)
		case VariantSuccess, VariantFailed:
			log.Printf("confusing message (outcome arrived at worker), fatal")
			r.conn.Close()
			return
		case VariantNone:
			log.Printf("unrecognized message, ignoring")
		}
	}
}

func (r *Runner) handleAssignment(p AssignmentPayload) {
	id, err := parseJobID(p.ID)
	if err != nil {
		log.Printf("malformed job id in assignment, ignoring: %v", err)
		return
	}

	r.mu.Lock()
	if r.active.Valid() {
		r.mu.Unlock()
		log.Printf("already have assignment %v, refusing %v", r.active, id)
		r.reply(id, false, "Already have assignment!", "")
		return
	}
	r.active = id
	r.mu.Unlock()

	// Run the command off the read loop's goroutine: spec.md §4.2 requires
	// the runner to stay responsive (and defensively reject) while a
	// command is in flight, which a blocking exec.Cmd.Run call here would
	// prevent.
	go r.runCommand(id, p.Command)
}

func (r *Runner) runCommand(id JobID, command string) {
	log.Printf("running job %v: %s", id, command)
	cmd := exec.Command(r.shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	r.mu.Lock()
	r.active = ""
	r.mu.Unlock()

	success := err == nil
	r.reply(id, success, stdout.String(), stderr.String())
}

func (r *Runner) reply(id JobID, success bool, stdout, stderr string) {
	var data []byte
	var err error
	if success {
		data, err = EncodeSuccess(id, stdout, stderr)
	} else {
		data, err = EncodeFailed(id, stdout, stderr)
	}
	if err != nil {
		log.Printf("encode outcome for %v: %v", id, err)
		return
	}
	if err := r.conn.WriteMessage(data); err != nil {
		log.Printf("send outcome for %v: %v", id, err)
	}
}
