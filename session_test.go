package parbreak

import "testing"

func TestSessionAssignRejectsWhenNotIdle(t *testing.T) {
	store := NewStore()
	disp := NewDispatcher(store, nil)
	conn := newFakeConn("worker-1")
	s := newSession(1, conn, store, disp)

	id := store.Add("echo hi")
	job := store.TakeNext()
	if job.ID != id {
		t.Fatalf("TakeNext = %v, want %v", job.ID, id)
	}

	if err := s.assign(job); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if s.isIdle() {
		t.Fatalf("session should be busy after assign")
	}

	other := &Job{ID: NewJobID(), Command: "echo again"}
	if err := s.assign(other); err == nil {
		t.Fatalf("expected assign on a busy session to fail")
	}
}

func TestSessionStatusStringReflectsAssignment(t *testing.T) {
	store := NewStore()
	disp := NewDispatcher(store, nil)
	conn := newFakeConn("worker-1")
	s := newSession(1, conn, store, disp)

	if got := s.statusString(); got != "idle" {
		t.Fatalf("statusString = %q, want idle", got)
	}

	id := store.Add("echo hi")
	job := store.TakeNext()
	if err := s.assign(job); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := s.statusString(); got != string(id) {
		t.Fatalf("statusString = %q, want %q", got, id)
	}
}

func TestSessionNameBecomesZombieAfterGone(t *testing.T) {
	store := NewStore()
	disp := NewDispatcher(store, nil)
	conn := newFakeConn("worker-1")
	s := newSession(1, conn, store, disp)

	if got := s.name(); got != "worker-1" {
		t.Fatalf("name before gone = %q, want worker-1", got)
	}
	s.goneBecauseClosed()
	if got := s.name(); got != "<zombie>" {
		t.Fatalf("name after gone = %q, want <zombie>", got)
	}
}
