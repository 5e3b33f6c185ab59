package parbreak

import (
	"strings"
	"testing"
)

func TestStoreAddAndTakeNext(t *testing.T) {
	s := NewStore()
	id := s.Add("echo hi")

	j := s.Get(id)
	if j == nil || j.Status != JobPending {
		t.Fatalf("job after add = %+v, want pending", j)
	}
	if s.PendingLen() != 1 {
		t.Fatalf("PendingLen = %d, want 1", s.PendingLen())
	}

	taken := s.TakeNext()
	if taken == nil || taken.ID != id {
		t.Fatalf("TakeNext = %+v, want job %v", taken, id)
	}
	if taken.Status != JobInWork {
		t.Errorf("status after TakeNext = %v, want in_work", taken.Status)
	}
	if s.PendingLen() != 0 {
		t.Errorf("PendingLen after take = %d, want 0", s.PendingLen())
	}
	if s.TakeNext() != nil {
		t.Fatalf("TakeNext on empty queue should return nil")
	}
}

func TestStoreCompleteSuccessAndFailure(t *testing.T) {
	s := NewStore()
	okID := s.Add("true")
	failID := s.Add("false")
	s.TakeNext()
	s.TakeNext()

	if err := s.Complete(okID, Outcome{Success: true, StdOut: "ok"}); err != nil {
		t.Fatalf("complete ok: %v", err)
	}
	if err := s.Complete(failID, Outcome{Success: false, StdErr: "bad"}); err != nil {
		t.Fatalf("complete fail: %v", err)
	}

	if got := s.Get(okID).Status; got != JobDone {
		t.Errorf("ok job status = %v, want done", got)
	}
	if got := s.Get(failID).Status; got != JobFailed {
		t.Errorf("failed job status = %v, want failed", got)
	}

	failed := s.FailedIDs()
	if len(failed) != 1 || failed[0] != failID {
		t.Errorf("FailedIDs = %v, want [%v]", failed, failID)
	}
}

func TestStoreCompleteUnknownJob(t *testing.T) {
	s := NewStore()
	if err := s.Complete(JobID("{bogus}"), Outcome{Success: true}); err == nil {
		t.Fatalf("expected error completing an unknown job")
	}
}

func TestStorePushBackRequeues(t *testing.T) {
	s := NewStore()
	id := s.Add("echo hi")
	s.TakeNext()

	if err := s.PushBack(id); err != nil {
		t.Fatalf("push back: %v", err)
	}
	if s.Get(id).Status != JobPending {
		t.Errorf("status after push back = %v, want pending", s.Get(id).Status)
	}
	if s.PendingLen() != 1 {
		t.Errorf("PendingLen after push back = %d, want 1", s.PendingLen())
	}
}

func TestStoreClearPendingLeavesJobRecordsPending(t *testing.T) {
	s := NewStore()
	id := s.Add("echo hi")
	s.ClearPending()

	if s.PendingLen() != 0 {
		t.Errorf("PendingLen after clear = %d, want 0", s.PendingLen())
	}
	if s.Get(id).Status != JobPending {
		t.Errorf("job record status = %v, want still pending", s.Get(id).Status)
	}
	if s.TakeNext() != nil {
		t.Fatalf("TakeNext after clear should find nothing in the queue")
	}
}

func TestStoreIngestFileSkipsBlankLines(t *testing.T) {
	s := NewStore()
	r := strings.NewReader("echo one\n\n   \necho two\n")
	n, err := s.IngestFile(r)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if n != 2 {
		t.Fatalf("ingested %d jobs, want 2", n)
	}
	if s.PendingLen() != 2 {
		t.Errorf("PendingLen = %d, want 2", s.PendingLen())
	}
}

func TestStoreWorkAvailableSignaledOnAdd(t *testing.T) {
	s := NewStore()
	s.Add("echo hi")
	select {
	case <-s.WorkAvailable:
	default:
		t.Fatalf("expected WorkAvailable to be signaled after Add")
	}
}
