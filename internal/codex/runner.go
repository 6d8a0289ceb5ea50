package codex

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ExecOutcome is the collected result of a synchronous one-shot run.
type ExecOutcome struct {
	ExitCode         *int              `json:"exitCode,omitempty"`
	ExitSignal       string            `json:"exitSignal,omitempty"`
	ThreadID         string            `json:"threadId,omitempty"`
	LastAgentMessage string            `json:"lastAgentMessage,omitempty"`
	Events           []NormalizedEvent `json:"events,omitempty"`
	StdoutTail       string            `json:"stdoutTail,omitempty"`
	StderrTail       string            `json:"stderrTail,omitempty"`
}

// Succeeded reports whether the run exited cleanly.
func (o *ExecOutcome) Succeeded() bool {
	return o.ExitCode != nil && *o.ExitCode == 0
}

// RunExec invokes the codex binary with the given argument vector and blocks
// until it exits or ctx is canceled. Stdout lines flow through the same
// framer and normalizer as subagent jobs; both streams keep a bounded tail.
func RunExec(ctx context.Context, bin string, args []string) (*ExecOutcome, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = os.Environ()

	collector := newStreamCollector()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var readers errgroup.Group
	readers.Go(func() error {
		buf := make([]byte, readChunkSize)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				collector.ingestStdout(buf[:n])
			}
			if err != nil {
				collector.flush()
				return nil
			}
		}
	})
	readers.Go(func() error {
		buf := make([]byte, readChunkSize)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				collector.ingestStderr(buf[:n])
			}
			if err != nil {
				return nil
			}
		}
	})

	_ = readers.Wait()
	_ = cmd.Wait()

	outcome := collector.outcome()
	outcome.ExitCode, outcome.ExitSignal = decodeExit(cmd)
	return outcome, nil
}

// streamCollector accumulates normalized events for a synchronous run. It
// mirrors the job ingest path without a registry record.
type streamCollector struct {
	mu          sync.Mutex
	framer      LineFramer
	stdoutTail  *TailBuffer
	stderrTail  *TailBuffer
	events      []NormalizedEvent
	threadID    string
	lastMessage string
}

func newStreamCollector() *streamCollector {
	return &streamCollector{
		stdoutTail: NewTailBuffer(DefaultTailCap),
		stderrTail: NewTailBuffer(DefaultTailCap),
	}
}

func (c *streamCollector) ingestStdout(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stdoutTail.Append(chunk)
	for _, line := range c.framer.Feed(string(chunk)) {
		c.ingestLineLocked(line)
	}
}

func (c *streamCollector) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line := c.framer.Flush(); line != "" {
		c.ingestLineLocked(line)
	}
}

func (c *streamCollector) ingestLineLocked(line string) {
	var raw any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		c.events = append(c.events, NewEvent(EventError, map[string]any{
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
	c.events = append(c.events, ev)

	switch ev.Type {
	case EventMessage:
		if text, ok := ev.Content["text"].(string); ok && text != "" {
			c.lastMessage = text
		}
	case EventProgress:
		if id, ok := ev.Content["threadId"].(string); ok && id != "" {
			c.threadID = id
		}
	}
}

func (c *streamCollector) ingestStderr(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stderrTail.Append(chunk)
}

func (c *streamCollector) outcome() *ExecOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]NormalizedEvent, len(c.events))
	copy(events, c.events)
	return &ExecOutcome{
		ThreadID:         c.threadID,
		LastAgentMessage: c.lastMessage,
		Events:           events,
		StdoutTail:       c.stdoutTail.String(),
		StderrTail:       c.stderrTail.String(),
	}
}
