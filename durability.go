package parbreak

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// Snapshot framing (spec.md §4.6): a sequence of records, each
//
//	16 bytes   raw UUID bytes (the braces and hyphens are not stored)
//	uint32     length of the command, big-endian
//	N bytes    command, UTF-8
//	1 byte     status code, 0=pending 1=in_work 2=done 3=failed
//
// with no overall record count or trailer: Restore reads until EOF. This is
// the framing spec.md's design notes call for explicitly, chosen because it
// is small, self-describing per record, and carries no language-specific
// encoding.

// HaltSave writes a point-in-time snapshot of store to path. Its
// precondition — no pending queue entries and no IN_WORK job — keeps the
// snapshot safe to resume from any host, since there is no in-flight work
// to orphan. Returns an error without writing if the precondition fails.
func HaltSave(store *Store, path string) error {
	jobs := store.All()
	for _, j := range jobs {
		if j.Status == JobInWork {
			return fmt.Errorf("halt-save precondition violated: job %v is %v", j.ID, j.Status)
		}
	}
	// A PENDING job record with no queue entry (eg after `clear pending`) is
	// exactly the state halt-save must be able to snapshot; only a
	// non-empty queue blocks it.
	if store.PendingLen() != 0 {
		return fmt.Errorf("halt-save precondition violated: pending queue is not empty")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("halt-save: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, j := range jobs {
		if err := writeRecord(w, j); err != nil {
			return fmt.Errorf("halt-save: %w", err)
		}
	}
	return w.Flush()
}

func writeRecord(w io.Writer, j *Job) error {
	inner := string(j.ID)
	if len(inner) >= 2 {
		inner = inner[1 : len(inner)-1] // strip braces
	}
	u, err := uuid.Parse(inner)
	if err != nil {
		return fmt.Errorf("job %v: %w", j.ID, err)
	}
	idBytes, _ := u.MarshalBinary()
	if _, err := w.Write(idBytes); err != nil {
		return err
	}
	cmd := []byte(j.Command)
	if err := binary.Write(w, binary.BigEndian, uint32(len(cmd))); err != nil {
		return err
	}
	if _, err := w.Write(cmd); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(j.Status)}); err != nil {
		return err
	}
	return nil
}

// Restore reads a snapshot written by HaltSave. For every record whose
// status is PENDING it re-inserts the job and appends it to the pending
// queue; records in any other status are discarded, per spec.md §4.6's
// assumption that a prior halt-save implies non-PENDING jobs are terminal
// and no longer interesting to re-run. Emits work-available once, after
// every pending record has been loaded.
func Restore(store *Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	n := 0
	for {
		id, command, status, err := readRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("restore: %w", err)
		}
		if status != JobPending {
			continue
		}
		store.restoreAdd(id, command, status)
		n++
	}
	if n > 0 {
		store.notifyWorkAvailable()
	}
	return n, nil
}

func readRecord(r io.Reader) (JobID, string, JobStatus, error) {
	var idBytes [16]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return "", "", 0, err
	}
	var u uuid.UUID
	if err := u.UnmarshalBinary(idBytes[:]); err != nil {
		return "", "", 0, err
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", "", 0, fmt.Errorf("read command length: %w", err)
	}
	cmd := make([]byte, n)
	if _, err := io.ReadFull(r, cmd); err != nil {
		return "", "", 0, fmt.Errorf("read command: %w", err)
	}

	var statusByte [1]byte
	if _, err := io.ReadFull(r, statusByte[:]); err != nil {
		return "", "", 0, fmt.Errorf("read status: %w", err)
	}

	return JobID(braced(u)), string(cmd), JobStatus(statusByte[0]), nil
}
