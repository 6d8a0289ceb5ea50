package codex

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Pein2017/codex-mcp-server/internal/config"
)

const (
	// WaitAnyMaxTimeout caps a wait-any call.
	WaitAnyMaxTimeout = 5 * time.Minute

	readChunkSize = 32 * 1024
)

// Manager owns every subagent job spawned during the server's lifetime.
// Jobs are never garbage-collected: identifiers stay resolvable until the
// process exits. The admission cap and the default sandbox are read from the
// environment at every spawn so they can be changed without a restart.
type Manager struct {
	bin string

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewManager creates a Manager that invokes the given codex binary.
func NewManager(bin string) *Manager {
	if bin == "" {
		bin = "codex"
	}
	return &Manager{
		bin:  bin,
		jobs: make(map[string]*Job),
	}
}

// SpawnResult is returned by the spawn operations.
type SpawnResult struct {
	JobID     string    `json:"jobId"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// StatusInfo is the defensive status snapshot returned to callers.
type StatusInfo struct {
	JobID      string     `json:"jobId"`
	Status     Status     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	ExitCode   *int       `json:"exitCode,omitempty"`
	ExitSignal string     `json:"exitSignal,omitempty"`
}

// ResultInfo extends the status snapshot with the last agent message and the
// captured output tails.
type ResultInfo struct {
	StatusInfo
	LastAgentMessage string `json:"lastAgentMessage,omitempty"`
	StdoutTail       string `json:"stdoutTail,omitempty"`
	StderrTail       string `json:"stderrTail,omitempty"`
}

// EventsPage is one cursor-paginated slice of a job's event vector.
type EventsPage struct {
	Events     []NormalizedEvent `json:"events"`
	NextCursor string            `json:"nextCursor"`
	Done       bool              `json:"done"`
}

// WaitAnyResult reports the outcome of a wait-any call.
type WaitAnyResult struct {
	CompletedJobID string   `json:"completedJobId,omitempty"`
	TimedOut       bool     `json:"timedOut"`
	MissingJobIDs  []string `json:"missingJobIds,omitempty"`
}

// SpawnFromRequest resolves the caller-supplied options against the server
// environment and spawns a subagent job.
func (m *Manager) SpawnFromRequest(req SpawnRequest) (*SpawnResult, error) {
	effective := ResolveEffective(req, config.DefaultSandbox())
	meta := SpawnMetadata{
		Requested: req,
		Effective: effective,
		Label:     req.Label,
	}
	return m.spawn(req.Prompt, effective, meta)
}

// SpawnFromEffective spawns a job with already-resolved options. Used by the
// interrupt path so a respawn inherits the interrupted job's settings
// verbatim.
func (m *Manager) SpawnFromEffective(prompt string, effective EffectiveOptions, meta SpawnMetadata) (*SpawnResult, error) {
	meta.Requested.Prompt = prompt
	meta.Effective = effective
	return m.spawn(prompt, effective, meta)
}

func (m *Manager) spawn(prompt string, effective EffectiveOptions, meta SpawnMetadata) (*SpawnResult, error) {
	id := uuid.NewString()
	job := newJob(id, meta)

	// Admission check and registry insert share one critical section so the
	// running count can never exceed the cap.
	limit := config.MaxConcurrentJobs()
	m.mu.Lock()
	running := 0
	for _, existing := range m.jobs {
		if !existing.statusSnapshot().IsTerminal() {
			running++
		}
	}
	if running >= limit {
		m.mu.Unlock()
		return nil, fmt.Errorf("too many concurrent jobs: %d running (limit %d)", running, limit)
	}
	m.jobs[id] = job
	m.mu.Unlock()

	args := BuildExecArgs(effective, prompt)
	cmd := exec.Command(m.bin, args...)
	cmd.Env = os.Environ()
	if effective.WorkingDirectory != "" {
		cmd.Dir = effective.WorkingDirectory
	}

	job.mu.Lock()
	job.cmd = cmd
	job.appendEventLocked(NewEvent(EventProgress, map[string]any{
		"kind":             "spawned",
		"command":          m.bin,
		"args":             args,
		"effectiveSandbox": effective.Sandbox,
		"label":            meta.Label,
	}))
	job.mu.Unlock()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		job.markSpawnFailed(err)
		return m.spawnResult(job), nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		job.markSpawnFailed(err)
		return m.spawnResult(job), nil
	}

	if err := cmd.Start(); err != nil {
		job.markSpawnFailed(err)
		return m.spawnResult(job), nil
	}

	var readers errgroup.Group
	readers.Go(func() error {
		buf := make([]byte, readChunkSize)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				job.ingestStdout(buf[:n])
			}
			if err != nil {
				job.flushStdout()
				return nil
			}
		}
	})
	readers.Go(func() error {
		buf := make([]byte, readChunkSize)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				job.ingestStderr(buf[:n])
			}
			if err != nil {
				return nil
			}
		}
	})

	go func() {
		// Both pipes must be drained before Wait reaps the child.
		_ = readers.Wait()
		_ = cmd.Wait()
		exitCode, exitSignal := decodeExit(cmd)
		job.markTerminated(exitCode, exitSignal)
	}()

	return m.spawnResult(job), nil
}

func (m *Manager) spawnResult(job *Job) *SpawnResult {
	return &SpawnResult{
		JobID:     job.ID(),
		Status:    job.statusSnapshot(),
		StartedAt: job.startedAt,
	}
}

// decodeExit extracts the exit code or the terminating signal from a reaped
// child. Exactly one of the two is populated, mirroring how the agent's host
// reports signal deaths.
func decodeExit(cmd *exec.Cmd) (*int, string) {
	state := cmd.ProcessState
	if state == nil {
		return nil, ""
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return nil, signalName(ws.Signal())
	}
	code := state.ExitCode()
	return &code, ""
}

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGINT:
		return "SIGINT"
	}
	return sig.String()
}

func (m *Manager) getJob(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("unknown jobId: %s", jobID)
	}
	return job, nil
}

// Status returns a defensive copy of the job's status fields.
func (m *Manager) Status(jobID string) (*StatusInfo, error) {
	job, err := m.getJob(jobID)
	if err != nil {
		return nil, err
	}
	info := statusInfoLocked(job)
	return &info, nil
}

func statusInfoLocked(job *Job) StatusInfo {
	job.mu.Lock()
	defer job.mu.Unlock()

	info := StatusInfo{
		JobID:      job.id,
		Status:     job.status,
		StartedAt:  job.startedAt,
		ExitSignal: job.exitSignal,
	}
	if job.finishedAt != nil {
		t := *job.finishedAt
		info.FinishedAt = &t
	}
	if job.exitCode != nil {
		c := *job.exitCode
		info.ExitCode = &c
	}
	return info
}

// Result returns the status snapshot plus the last agent message and the
// stdout/stderr tails.
func (m *Manager) Result(jobID string) (*ResultInfo, error) {
	job, err := m.getJob(jobID)
	if err != nil {
		return nil, err
	}

	info := statusInfoLocked(job)

	job.mu.Lock()
	res := &ResultInfo{
		StatusInfo:       info,
		LastAgentMessage: job.lastMessage,
		StdoutTail:       job.stdoutTail.String(),
		StderrTail:       job.stderrTail.String(),
	}
	job.mu.Unlock()
	return res, nil
}

// GetSpawnMetadata returns a copy of the job's spawn metadata.
func (m *Manager) GetSpawnMetadata(jobID string) (SpawnMetadata, error) {
	job, err := m.getJob(jobID)
	if err != nil {
		return SpawnMetadata{}, err
	}
	return job.metadataSnapshot(), nil
}

// GetEvents returns one page of the job's event vector. The cursor is a
// decimal index; invalid or negative values clamp to zero. Because the
// vector is append-only, paginating with the returned cursor yields every
// event exactly once.
func (m *Manager) GetEvents(jobID, cursor string, maxEvents int) (*EventsPage, error) {
	job, err := m.getJob(jobID)
	if err != nil {
		return nil, err
	}
	if maxEvents < 1 {
		maxEvents = 1
	}

	start := 0
	if cursor != "" {
		if parsed, err := strconv.Atoi(cursor); err == nil && parsed > 0 {
			start = parsed
		}
	}

	events, total, status := job.snapshotEvents(start)
	if start > total {
		start = total
	}
	end := start + maxEvents
	if end > total {
		end = total
	}
	return &EventsPage{
		Events:     events[:end-start],
		NextCursor: strconv.Itoa(end),
		Done:       status.IsTerminal(),
	}, nil
}

// GetEventTail returns the last maxEvents entries of the event vector, in
// original order, optionally filtered to an allow-list of types.
func (m *Manager) GetEventTail(jobID string, maxEvents int, types []EventType) ([]NormalizedEvent, error) {
	job, err := m.getJob(jobID)
	if err != nil {
		return nil, err
	}
	if maxEvents <= 0 {
		return []NormalizedEvent{}, nil
	}

	events, _, _ := job.snapshotEvents(0)
	if len(types) > 0 {
		allowed := make(map[EventType]bool, len(types))
		for _, t := range types {
			allowed[t] = true
		}
		filtered := events[:0]
		for _, ev := range events {
			if allowed[ev.Type] {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if len(events) > maxEvents {
		events = events[len(events)-maxEvents:]
	}
	return events, nil
}

// Cancel requests termination of a running job. Cancellation is advisory:
// the child decides when to exit, and the terminal status is classified when
// it does. Returns false without side effects when the job is not running.
func (m *Manager) Cancel(jobID string, force bool) (bool, error) {
	job, err := m.getJob(jobID)
	if err != nil {
		return false, err
	}

	job.mu.Lock()
	if job.status != StatusRunning {
		job.mu.Unlock()
		return false, nil
	}
	job.cancelRequested = true
	proc := job.cmd
	job.mu.Unlock()

	if proc != nil && proc.Process != nil {
		if force {
			_ = proc.Process.Kill()
		} else {
			// Signal failures (child already gone) resolve through the
			// normal termination path.
			_ = proc.Process.Signal(syscall.SIGTERM)
		}
	}
	return true, nil
}

// WaitForExit blocks until the job terminates or waitMs elapses. A zero or
// negative wait returns immediately; an already-terminal job reports
// exited=true without waiting.
func (m *Manager) WaitForExit(jobID string, waitMs int) (bool, error) {
	job, err := m.getJob(jobID)
	if err != nil {
		return false, err
	}
	if job.statusSnapshot().IsTerminal() {
		return true, nil
	}
	if waitMs <= 0 {
		return false, nil
	}

	timer := time.NewTimer(time.Duration(waitMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-job.Done():
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

// WaitAny blocks until the first of the given jobs terminates or the timeout
// elapses. Unknown identifiers are reported back rather than treated as
// errors; a job that is already terminal wins immediately.
func (m *Manager) WaitAny(jobIDs []string, timeout time.Duration) *WaitAnyResult {
	var known []*Job
	var missing []string

	m.mu.RLock()
	for _, id := range jobIDs {
		if job, ok := m.jobs[id]; ok {
			known = append(known, job)
		} else {
			missing = append(missing, id)
		}
	}
	m.mu.RUnlock()

	result := &WaitAnyResult{MissingJobIDs: missing}
	if len(known) == 0 {
		return result
	}

	for _, job := range known {
		if job.statusSnapshot().IsTerminal() {
			result.CompletedJobID = job.ID()
			return result
		}
	}

	if timeout < 0 {
		timeout = 0
	}
	if timeout > WaitAnyMaxTimeout {
		timeout = WaitAnyMaxTimeout
	}
	if timeout == 0 {
		result.TimedOut = true
		return result
	}

	winner := make(chan string, 1)
	stop := make(chan struct{})
	defer close(stop)
	for _, job := range known {
		go func(job *Job) {
			select {
			case <-job.Done():
				select {
				case winner <- job.ID():
				default:
				}
			case <-stop:
			}
		}(job)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case id := <-winner:
		result.CompletedJobID = id
	case <-timer.C:
		result.TimedOut = true
	}
	return result
}

// FallbackFinalMessage renders the canonical human-readable summary used
// when a terminated job never emitted an agent message. Running jobs get an
// empty string.
func FallbackFinalMessage(status Status, exitCode *int) string {
	var msg string
	switch status {
	case StatusCanceled:
		msg = "The subagent job was canceled before it produced a final message.\nPartial output may be available in the stdout tail."
	case StatusFailed:
		msg = "The subagent job failed without producing a final message.\nCheck the stderr tail for diagnostics."
	case StatusDone:
		msg = "The subagent job completed but did not emit an agent message.\nCheck the stdout tail for raw output."
	default:
		return ""
	}
	if exitCode != nil {
		msg += fmt.Sprintf("\nExit code: %d", *exitCode)
	}
	return msg
}
