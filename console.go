package parbreak

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Console consumes a stream of text lines from an asynchronous input
// source — spec.md §1 names the line source itself an external
// collaborator; Console only consumes its output channel — and mutates
// coordinator state through a small command table, the same shape as the
// teacher's cmd/cocofarm `Command` dispatch and the original
// job_parbreak.py `prompt_decode` dict of callables.
type Console struct {
	store   *Store
	disp    *Dispatcher
	history *History
	launch  *Launcher

	// Exit is closed once the `exit` command runs, telling cmd/parbreak's
	// main goroutine to shut down.
	Exit chan struct{}
}

// NewConsole creates a Console wired to the given coordinator components.
// history and launch may be nil to disable the `history` and `worker add`
// commands respectively.
func NewConsole(store *Store, disp *Dispatcher, history *History, launch *Launcher) *Console {
	return &Console{
		store:   store,
		disp:    disp,
		history: history,
		launch:  launch,
		Exit:    make(chan struct{}),
	}
}

// Run reads lines from lines until it is closed or `exit` is issued.
func (c *Console) Run(lines <-chan string) {
	for line := range lines {
		c.handle(line)
		select {
		case <-c.Exit:
			return
		default:
		}
	}
}

func (c *Console) handle(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	args := fields[1:]

	// `clear pending` and `worker list`/`worker add`/`worker drop` are
	// two-word commands; fold the second word into the command name the
	// way the teacher's flat dispatch table expects, rather than building
	// a generic subcommand tree for two cases.
	if cmd == "clear" || cmd == "worker" {
		if len(args) == 0 {
			log.Printf("console: %s needs a subcommand", cmd)
			return
		}
		cmd = cmd + " " + args[0]
		args = args[1:]
	}

	switch cmd {
	case "exit":
		c.cmdExit()
	case "add":
		c.cmdAdd(args)
	case "status":
		c.cmdStatus(args)
	case "clear pending":
		c.cmdClearPending(args)
	case "haltsave":
		c.cmdHaltsave(args)
	case "restore":
		c.cmdRestore(args)
	case "history":
		c.cmdHistory(args)
	case "worker list":
		c.cmdWorkerList(args)
	case "worker add":
		c.cmdWorkerAdd(args)
	case "worker drop":
		c.cmdWorkerDrop(args)
	default:
		log.Printf("console: unknown command: %q", cmd)
	}
}

func (c *Console) cmdExit() {
	log.Print("console: exiting")
	close(c.Exit)
}

func (c *Console) cmdAdd(args []string) {
	if len(args) != 1 {
		log.Print("console: usage: add <path>")
		return
	}
	f, err := os.Open(args[0])
	if err != nil {
		log.Printf("console: add: %v", err)
		return
	}
	defer f.Close()
	n, err := c.store.IngestFile(f)
	if err != nil {
		log.Printf("console: add: %v", err)
		return
	}
	log.Printf("console: ingested %d jobs from %s", n, args[0])
}

func (c *Console) cmdStatus(args []string) {
	fmt.Printf("pending: %d, failed: %d\n", c.store.PendingLen(), len(c.store.FailedIDs()))
	for _, s := range c.disp.Sessions() {
		fmt.Printf("- %d %s : %s\n", s.ID(), s.name(), s.statusString())
	}
}

func (c *Console) cmdClearPending(args []string) {
	c.store.ClearPending()
	log.Print("console: pending queue cleared")
}

func (c *Console) cmdHaltsave(args []string) {
	if len(args) != 1 {
		log.Print("console: usage: haltsave <path>")
		return
	}
	if err := HaltSave(c.store, args[0]); err != nil {
		log.Printf("console: haltsave: %v", err)
		return
	}
	log.Printf("console: wrote snapshot to %s", args[0])
}

func (c *Console) cmdRestore(args []string) {
	if len(args) != 1 {
		log.Print("console: usage: restore <path>")
		return
	}
	n, err := Restore(c.store, args[0])
	if err != nil {
		log.Printf("console: restore: %v", err)
		return
	}
	log.Printf("console: restored %d pending jobs from %s", n, args[0])
}

func (c *Console) cmdHistory(args []string) {
	if c.history == nil {
		log.Print("console: history is disabled")
		return
	}
	records, err := c.history.Recent(20)
	if err != nil {
		log.Printf("console: history: %v", err)
		return
	}
	for _, r := range records {
		fmt.Printf("- %s %s %s\n", r.ID, r.Status, r.FinishedAt.Format("2006-01-02T15:04:05"))
	}
}

func (c *Console) cmdWorkerList(args []string) {
	c.cmdStatus(args)
}

func (c *Console) cmdWorkerAdd(args []string) {
	if c.launch == nil {
		log.Print("console: worker launcher is disabled")
		return
	}
	if len(args) < 1 {
		log.Print("console: usage: worker add <host> [exe]")
		return
	}
	host := args[0]
	exe := "parbreak"
	if len(args) >= 2 {
		exe = args[1]
	}
	if err := c.launch.Launch(host, exe); err != nil {
		log.Printf("console: worker add: %v", err)
	}
}

func (c *Console) cmdWorkerDrop(args []string) {
	if len(args) != 1 {
		log.Print("console: usage: worker drop <id>")
		return
	}
	var id int
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		log.Printf("console: worker drop: bad id: %v", err)
		return
	}
	if err := c.disp.Drop(id); err != nil {
		log.Printf("console: worker drop: %v", err)
	}
}
