package parbreak

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
)

// Launcher bootstraps a worker process on a remote host via an external
// secure-shell binary, per spec.md §4.8's external-collaborator contract:
// we only need to spawn `ssh` with the right arguments and report failure,
// not reimplement SSH itself.
type Launcher struct {
	// Port the coordinator listens on; embedded in the worker's ws:// URL.
	Port int
	// SSHBin is the secure-shell binary to exec, normally "ssh".
	SSHBin string
	cfg    *SSHConfig
}

// NewLauncher creates a Launcher for coordinator connections on port. cfg
// may be nil, in which case no per-host SSH defaults apply.
func NewLauncher(port int, cfg *SSHConfig) *Launcher {
	return &Launcher{Port: port, SSHBin: "ssh", cfg: cfg}
}

// Launch spawns `ssh <host> <exe> -c ws://<coordinator>:<port> &` in the
// background on host. The coordinator hostname is discovered from the
// local host's canonical name, matching spec.md's "discovered from the
// local host's canonical name" requirement.
func (l *Launcher) Launch(host, exe string) error {
	selfHost, err := canonicalHostname()
	if err != nil {
		return fmt.Errorf("launch %s: %w", host, err)
	}
	coordURL := fmt.Sprintf("ws://%s:%d", selfHost, l.Port)

	hc := l.cfg.For(host)
	sshArgs := []string{}
	if hc.Identity != "" {
		sshArgs = append(sshArgs, "-i", hc.Identity)
	}
	target := host
	if hc.User != "" {
		target = hc.User + "@" + host
	}
	sshArgs = append(sshArgs, target)
	remote := fmt.Sprintf("nohup %s -c %s >/dev/null 2>&1 &", exe, coordURL)
	sshArgs = append(sshArgs, remote)

	cmd := exec.Command(l.SSHBin, sshArgs...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", host, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("launcher: ssh to %s exited: %v", host, err)
		}
	}()
	return nil
}

func canonicalHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	addrs, err := net.LookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		// fall back to the bare hostname; not every environment has a
		// resolvable canonical name, and the worker only needs something
		// it can reach the coordinator through.
		return hostname, nil
	}
	names, err := net.LookupAddr(addrs[0])
	if err != nil || len(names) == 0 {
		return hostname, nil
	}
	return trimTrailingDot(names[0]), nil
}

func trimTrailingDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}
