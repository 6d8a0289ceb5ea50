package codex

import (
	"encoding/json"
	"os/exec"
	"sync"
	"time"
)

// Status is the lifecycle state of a subagent job. The only transitions are
// from running to exactly one of the terminal states.
type Status string

const (
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// IsTerminal reports whether s is a terminal status.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// Job is the internal record for one subagent invocation. All mutable state
// is guarded by mu; the done channel is closed exactly once when the child
// terminates or a spawn error is recorded, and no event is appended after
// that.
type Job struct {
	id string

	mu              sync.Mutex
	status          Status
	startedAt       time.Time
	finishedAt      *time.Time
	exitCode        *int
	exitSignal      string
	cancelRequested bool
	turnCompleted   bool
	cmd             *exec.Cmd
	stdoutTail      *TailBuffer
	stderrTail      *TailBuffer
	framer          LineFramer
	events          []NormalizedEvent
	lastMessage     string
	meta            SpawnMetadata

	done     chan struct{}
	doneOnce sync.Once
}

func newJob(id string, meta SpawnMetadata) *Job {
	return &Job{
		id:         id,
		status:     StatusRunning,
		startedAt:  time.Now(),
		stdoutTail: NewTailBuffer(DefaultTailCap),
		stderrTail: NewTailBuffer(DefaultTailCap),
		meta:       meta,
		done:       make(chan struct{}),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.id
}

// Done returns a channel closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// appendEvent adds an event to the vector. Events are append-only; readers
// holding a cursor rely on existing indexes never changing.
func (j *Job) appendEvent(ev NormalizedEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.appendEventLocked(ev)
}

func (j *Job) appendEventLocked(ev NormalizedEvent) {
	j.events = append(j.events, ev)
}

// ingestStdout routes one stdout chunk through the tail buffer and the line
// framer, normalizing each complete line into the event vector. A line that
// fails to decode becomes an error event instead of killing the job.
func (j *Job) ingestStdout(chunk []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.stdoutTail.Append(chunk)
	for _, line := range j.framer.Feed(string(chunk)) {
		j.ingestLineLocked(line)
	}
}

// flushStdout ingests any partial final line at stream EOF.
func (j *Job) flushStdout() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if line := j.framer.Flush(); line != "" {
		j.ingestLineLocked(line)
	}
}

func (j *Job) ingestLineLocked(line string) {
	var raw any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		j.appendEventLocked(NewEvent(EventError, map[string]any{
			"message": "Failed to parse codex JSONL event",
			"line":    line,
			"error":   err.Error(),
		}))
		return
	}

	ev, ok := NormalizeEvent(raw)
	if !ok {
		return
	}
	j.appendEventLocked(ev)

	switch ev.Type {
	case EventMessage:
		if text, ok := ev.Content["text"].(string); ok && text != "" {
			j.lastMessage = text
		}
	case EventProgress:
		if kind, ok := ev.Content["kind"].(string); ok && kind == "turn.completed" {
			j.turnCompleted = true
		}
	}
}

// ingestStderr appends diagnostics to the stderr tail. Stderr is never
// parsed for events.
func (j *Job) ingestStderr(chunk []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stderrTail.Append(chunk)
}

// snapshotEvents copies events[from:] so callers can read without holding
// the job lock.
func (j *Job) snapshotEvents(from int) ([]NormalizedEvent, int, Status) {
	j.mu.Lock()
	defer j.mu.Unlock()

	total := len(j.events)
	if from < 0 {
		from = 0
	}
	if from > total {
		from = total
	}
	out := make([]NormalizedEvent, total-from)
	copy(out, j.events[from:])
	return out, total, j.status
}

func (j *Job) statusSnapshot() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) metadataSnapshot() SpawnMetadata {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.meta
}

// markTerminated records the exit outcome and appends the final event. It is
// a no-op when the job already left running (e.g. a spawn error was recorded
// first). The completion signal fires after the final event is in place, so
// waiters observe a fully terminal record.
func (j *Job) markTerminated(exitCode *int, exitSignal string) {
	j.mu.Lock()
	if j.status != StatusRunning {
		j.mu.Unlock()
		return
	}

	now := time.Now()
	j.finishedAt = &now
	j.exitCode = exitCode
	j.exitSignal = exitSignal
	j.status = classifyExit(j.cancelRequested, j.turnCompleted, exitCode)

	content := map[string]any{
		"jobId":       j.id,
		"status":      string(j.status),
		"exitCode":    nil,
		"exitSignal":  nil,
		"lastMessage": j.lastMessage,
	}
	if exitCode != nil {
		content["exitCode"] = *exitCode
	}
	if exitSignal != "" {
		content["exitSignal"] = exitSignal
	}
	j.appendEventLocked(NewEvent(EventFinal, content))
	j.mu.Unlock()

	j.doneOnce.Do(func() { close(j.done) })
}

// markSpawnFailed records a child runtime error that occurred before any
// exit (binary missing, permission denied). The job goes terminal with an
// error event rather than a final event.
func (j *Job) markSpawnFailed(spawnErr error) {
	j.mu.Lock()
	if j.status != StatusRunning {
		j.mu.Unlock()
		return
	}

	now := time.Now()
	j.finishedAt = &now
	if j.cancelRequested {
		j.status = StatusCanceled
	} else {
		j.status = StatusFailed
	}
	j.appendEventLocked(NewEvent(EventError, map[string]any{
		"message": "Failed to spawn codex subagent",
		"error":   spawnErr.Error(),
	}))
	j.mu.Unlock()

	j.doneOnce.Do(func() { close(j.done) })
}

// classifyExit applies the terminal-status rules: a requested cancel whose
// turn never completed is canceled regardless of exit code, because the
// agent handles signals gracefully and may exit 0 under SIGTERM. Otherwise
// exit 0 is done and anything else is failed.
func classifyExit(cancelRequested, turnCompleted bool, exitCode *int) Status {
	if cancelRequested && !turnCompleted {
		return StatusCanceled
	}
	if exitCode != nil && *exitCode == 0 {
		return StatusDone
	}
	return StatusFailed
}
