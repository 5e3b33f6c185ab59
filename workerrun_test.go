package parbreak

import (
	"testing"
	"time"
)

// S6: a second Assignment arriving before the first has finished must be
// refused immediately with "Already have assignment!", without disturbing
// the first command's eventual outcome.
func TestRunnerRefusesDoubleAssignment(t *testing.T) {
	conn := newFakeConn("worker-1")
	r := NewRunner(conn, "/bin/sh")
	go r.Run()

	first := NewJobID()
	data, err := EncodeAssignment(first, "sleep 0.2")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	conn.deliver(data)

	second := NewJobID()
	data, err = EncodeAssignment(second, "echo too-late")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Run's read loop is single-threaded and processes deliveries in order,
	// so by the time it reads the second assignment, handleAssignment for
	// the first has already marked it active and returned.
	conn.deliver(data)

	gotSecondRefusal := false
	gotFirstOutcome := false
	for i := 0; i < 2; i++ {
		var raw []byte
		select {
		case raw = <-conn.toPeer:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for outcome %d", i)
		}
		msg, err := Decode(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Variant != VariantFailed && msg.Variant != VariantSuccess {
			t.Fatalf("variant = %v, want an outcome", msg.Variant)
		}
		switch msg.Outcome.ID {
		case string(second):
			if msg.Variant != VariantFailed || msg.Outcome.StdOut != "Already have assignment!" {
				t.Fatalf("second job outcome = %+v, want immediate refusal", msg.Outcome)
			}
			gotSecondRefusal = true
		case string(first):
			gotFirstOutcome = true
		default:
			t.Fatalf("outcome for unknown job id %v", msg.Outcome.ID)
		}
	}
	if !gotSecondRefusal || !gotFirstOutcome {
		t.Fatalf("expected both a refusal for the second job and an eventual outcome for the first")
	}
}

func TestRunnerClosesOnConfusingMessage(t *testing.T) {
	conn := newFakeConn("worker-1")
	r := NewRunner(conn, "/bin/sh")
	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()

	data, err := EncodeSuccess(NewJobID(), "", "")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	conn.deliver(data)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after a confusing message")
	}
}
