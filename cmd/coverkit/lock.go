package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// Single Instance
// ///////////////////////////////////////////////

// instance holds the preview PID lock for the life of the process.
type instance struct {
	paths DataPaths
	token string
	file  *os.File
}

// runningError reports another live preview process.
type runningError struct {
	pid int
}

func (e *runningError) Error() string {
	if e.pid == 0 {
		return "preview already running"
	}
	return fmt.Sprintf("preview already running (pid %d)", e.pid)
}

// acquireInstance takes the preview lock, cleaning up a stale PID file left
// by a dead process. It fails with a *runningError when another preview
// holds the lock.
func acquireInstance(p DataPaths) (*instance, error) {
	if alive, pid := checkStalePID(p); alive {
		return nil, &runningError{pid: pid}
	}
	token := pidToken()
	f, err := writePID(p, token)
	if err != nil {
		return nil, err
	}
	return &instance{paths: p, token: token, file: f}, nil
}

// release unlocks and removes the PID file if this instance still owns it.
func (i *instance) release() {
	removePID(i.paths, i.token, i.file)
}

// pidToken returns a random 16-character hex token that proves ownership of
// the PID file.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID opens the PID file, locks it and writes "PID:TOKEN". The handle
// must stay open to keep the lock.
func writePID(p DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(p.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	fail := func(step string, err error) (*os.File, error) {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("%s PID file: %w", step, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if alive, pid := readPID(p); alive {
			return nil, &runningError{pid: pid}
		}
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fail("truncate", err)
	}
	if _, err := fmt.Fprintf(f, "%d:%s", os.Getpid(), token); err != nil {
		return fail("write", err)
	}
	return f, nil
}

// removePID releases the lock and deletes the PID file only when it still
// carries token.
func removePID(p DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(p.PID())
	if err != nil {
		return
	}
	if _, tok, ok := strings.Cut(string(data), ":"); ok && tok == token {
		os.Remove(p.PID())
	}
}

// checkStalePID reports whether another process holds the PID lock. A PID
// file whose lock can be taken belongs to a dead process and is removed.
func checkStalePID(p DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(p.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}
	if lockErr := lockFile(f); lockErr != nil {
		f.Close()
		return readPID(p)
	}
	_ = unlockFile(f)
	f.Close()
	os.Remove(p.PID())
	return false, 0
}

// readPID parses the PID stored in the PID file. alive is always true; the
// caller has already seen the lock held.
func readPID(p DataPaths) (alive bool, pid int) {
	data, _ := os.ReadFile(p.PID())
	head, _, _ := strings.Cut(string(data), ":")
	if n, err := strconv.Atoi(head); err == nil {
		return true, n
	}
	return true, 0
}
