package codex

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultInterruptWaitMs is how long Interrupt waits for the canceled
	// job to exit before respawning.
	DefaultInterruptWaitMs = 250
	// MaxInterruptWaitMs caps the caller-supplied wait.
	MaxInterruptWaitMs = 60_000
	// DefaultTailMaxEvents is the default (and hard cap) for the event tail
	// injected into the respawn prompt.
	DefaultTailMaxEvents = 25
)

// refreshReminder is appended to every respawn prompt so the new agent does
// not edit files based on stale context from before the interruption.
const refreshReminder = "Reminder: the workspace may have changed while the previous job was running. Re-read any files you intend to modify before editing them."

// SpawnOverrides selectively replaces fields of the interrupted job's
// effective options for the respawn. An explicit sandbox override suppresses
// full-auto, same as at spawn time.
type SpawnOverrides struct {
	Model            string `json:"model,omitempty"`
	ReasoningEffort  string `json:"reasoningEffort,omitempty"`
	Sandbox          string `json:"sandbox,omitempty"`
	FullAuto         *bool  `json:"fullAuto,omitempty"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
}

// InterruptOptions tunes the cancel-wait-respawn sequence. Nil fields take
// the documented defaults.
type InterruptOptions struct {
	WaitMs           *int
	IncludeEventTail *bool
	TailMaxEvents    *int
	Overrides        *SpawnOverrides
}

// InterruptResult reports whether the job was respawned, and why not when it
// was not.
type InterruptResult struct {
	PreviousJobID  string `json:"previousJobId"`
	PreviousStatus Status `json:"previousStatus"`
	Respawned      bool   `json:"respawned"`
	NewJobID       string `json:"newJobId,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Interrupt cancels a running job, waits briefly for it to exit, and
// respawns the agent with the new prompt plus an injected tail of the
// interrupted job's events. A job that completes naturally while we wait is
// left alone: its work is finished and replacing it would discard the
// result.
func (m *Manager) Interrupt(jobID, newPrompt string, opts InterruptOptions) (*InterruptResult, error) {
	waitMs := DefaultInterruptWaitMs
	if opts.WaitMs != nil {
		waitMs = *opts.WaitMs
	}
	if waitMs < 0 {
		waitMs = 0
	}
	if waitMs > MaxInterruptWaitMs {
		waitMs = MaxInterruptWaitMs
	}

	includeTail := true
	if opts.IncludeEventTail != nil {
		includeTail = *opts.IncludeEventTail
	}

	tailMax := DefaultTailMaxEvents
	if opts.TailMaxEvents != nil {
		tailMax = *opts.TailMaxEvents
	}
	if tailMax < 0 {
		tailMax = 0
	}
	if tailMax > DefaultTailMaxEvents {
		tailMax = DefaultTailMaxEvents
	}

	status, err := m.Status(jobID)
	if err != nil {
		return nil, err
	}
	if status.Status != StatusRunning {
		return &InterruptResult{
			PreviousJobID:  jobID,
			PreviousStatus: status.Status,
			Respawned:      false,
			Reason:         fmt.Sprintf("job is not running (status=%s)", status.Status),
		}, nil
	}

	meta, err := m.GetSpawnMetadata(jobID)
	if err != nil {
		return nil, err
	}

	var tail []NormalizedEvent
	if includeTail {
		tail, err = m.GetEventTail(jobID, tailMax, []EventType{EventMessage, EventError, EventProgress})
		if err != nil {
			return nil, err
		}
	}

	canceled, err := m.Cancel(jobID, false)
	if err != nil {
		return nil, err
	}
	if !canceled {
		current, err := m.Status(jobID)
		if err != nil {
			return nil, err
		}
		return &InterruptResult{
			PreviousJobID:  jobID,
			PreviousStatus: current.Status,
			Respawned:      false,
			Reason:         fmt.Sprintf("job is not running (status=%s)", current.Status),
		}, nil
	}

	if waitMs > 0 {
		if _, err := m.WaitForExit(jobID, waitMs); err != nil {
			return nil, err
		}
	}

	after, err := m.Status(jobID)
	if err != nil {
		return nil, err
	}
	if after.Status == StatusDone || after.Status == StatusFailed {
		return &InterruptResult{
			PreviousJobID:  jobID,
			PreviousStatus: after.Status,
			Respawned:      false,
			Reason:         "job completed naturally while waiting for cancellation",
		}, nil
	}

	effective := overlayOverrides(meta.Effective, opts.Overrides)
	prompt := buildRespawnPrompt(jobID, tail, newPrompt)

	spawned, err := m.SpawnFromEffective(prompt, effective, meta)
	if err != nil {
		return nil, err
	}

	return &InterruptResult{
		PreviousJobID:  jobID,
		PreviousStatus: after.Status,
		Respawned:      true,
		NewJobID:       spawned.JobID,
	}, nil
}

// overlayOverrides applies non-empty override fields onto the captured
// effective options.
func overlayOverrides(effective EffectiveOptions, overrides *SpawnOverrides) EffectiveOptions {
	if overrides == nil {
		return effective
	}
	if overrides.Model != "" {
		effective.Model = overrides.Model
	}
	if overrides.ReasoningEffort != "" {
		effective.ReasoningEffort = overrides.ReasoningEffort
	}
	if overrides.WorkingDirectory != "" {
		effective.WorkingDirectory = overrides.WorkingDirectory
	}
	if overrides.Sandbox != "" {
		effective.Sandbox = overrides.Sandbox
		effective.UseFullAuto = false
	}
	if overrides.FullAuto != nil {
		if *overrides.FullAuto && effective.Sandbox == "" {
			effective.UseFullAuto = true
		} else if !*overrides.FullAuto {
			effective.UseFullAuto = false
		}
	}
	return effective
}

// buildRespawnPrompt assembles the prompt for the replacement job: the
// formatted event tail of the interrupted job, the updated instructions,
// and the refresh reminder.
func buildRespawnPrompt(jobID string, tail []NormalizedEvent, newPrompt string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prior Context (from interrupted job %s)\n\n", jobID)

	if len(tail) == 0 {
		b.WriteString("(no captured events)\n")
	} else {
		for _, ev := range tail {
			fmt.Fprintf(&b, "[%s] %s: %s\n", ev.Timestamp, ev.Type, summarizeContent(ev.Content))
		}
	}

	b.WriteString("\nUpdated Instructions\n\n")
	b.WriteString(newPrompt)
	b.WriteString("\n\n")
	b.WriteString(refreshReminder)
	return b.String()
}

// summarizeContent renders event content for the prompt tail. Message-like
// payloads use their text; anything else falls back to compact JSON.
func summarizeContent(content map[string]any) string {
	if text, ok := content["text"].(string); ok && text != "" {
		return text
	}
	if msg, ok := content["message"].(string); ok && msg != "" {
		return msg
	}
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Sprintf("%v", content)
	}
	return string(data)
}
