package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pein2017/codex-mcp-server/internal/codex"
	"github.com/Pein2017/codex-mcp-server/internal/config"
)

// newTestServer builds a Server whose agent binary is a shell stub emitting
// the given script's output.
func newTestServer(t *testing.T, script string) *Server {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "codex-stub")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return NewServer(&config.Config{CodexBin: bin}, nil)
}

func toolCall(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return textContent.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %s", resultText(t, result))
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	return payload
}

func waitForJob(t *testing.T, s *Server, jobID string) {
	t.Helper()
	exited, err := s.Manager().WaitForExit(jobID, 10_000)
	require.NoError(t, err)
	require.True(t, exited)
}

const agentScript = `echo '{"type":"thread.started","thread_id":"thr-test"}'
echo '{"type":"item.completed","item":{"id":"m0","type":"agent_message","text":"task finished"}}'
echo '{"type":"turn.completed","usage":{"input_tokens":5,"output_tokens":2}}'`

func TestPingHandler(t *testing.T) {
	s := newTestServer(t, "exit 0")

	result, err := s.pingHandler(context.Background(), toolCall("ping", nil))
	require.NoError(t, err)
	assert.Equal(t, "pong", resultText(t, result))
}

func TestHelpHandlerListsTools(t *testing.T) {
	s := newTestServer(t, "exit 0")

	result, err := s.helpHandler(context.Background(), toolCall("codex_help", nil))
	require.NoError(t, err)

	text := resultText(t, result)
	for _, tool := range []string{
		"codex_exec", "codex_reply", "codex_review",
		"codex_spawn_subagent", "codex_wait_any", "codex_interrupt_subagent",
	} {
		assert.Contains(t, text, tool)
	}
}

func TestSpawnSubagentLifecycle(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	spawn, err := s.spawnSubagentHandler(ctx, toolCall("codex_spawn_subagent", map[string]any{
		"prompt": "do the task",
		"label":  "worker-1",
	}))
	require.NoError(t, err)

	payload := decodeResult(t, spawn)
	jobID, _ := payload["jobId"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "running", payload["status"])

	waitForJob(t, s, jobID)

	status, err := s.subagentStatusHandler(ctx, toolCall("codex_subagent_status", map[string]any{"jobId": jobID}))
	require.NoError(t, err)
	statusPayload := decodeResult(t, status)
	assert.Equal(t, "done", statusPayload["status"])
	assert.Equal(t, float64(0), statusPayload["exitCode"])

	// Default view is the bare final message.
	result, err := s.subagentResultHandler(ctx, toolCall("codex_subagent_result", map[string]any{"jobId": jobID}))
	require.NoError(t, err)
	assert.Equal(t, "task finished", resultText(t, result))

	full, err := s.subagentResultHandler(ctx, toolCall("codex_subagent_result", map[string]any{
		"jobId": jobID,
		"view":  "full",
	}))
	require.NoError(t, err)
	fullPayload := decodeResult(t, full)
	assert.Equal(t, "done", fullPayload["status"])
	assert.Equal(t, "task finished", fullPayload["finalMessage"])
	assert.Contains(t, fullPayload["stdoutTail"], "thread.started")

	events, err := s.subagentEventsHandler(ctx, toolCall("codex_subagent_events", map[string]any{"jobId": jobID}))
	require.NoError(t, err)
	eventsPayload := decodeResult(t, events)
	assert.True(t, eventsPayload["done"].(bool))
	assert.NotEmpty(t, eventsPayload["events"])

	// Cancel on a finished job reports success=false rather than an error.
	cancel, err := s.cancelSubagentHandler(ctx, toolCall("codex_cancel_subagent", map[string]any{"jobId": jobID}))
	require.NoError(t, err)
	cancelPayload := decodeResult(t, cancel)
	assert.False(t, cancelPayload["success"].(bool))
}

func TestSpawnSubagentValidation(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{"missing prompt", map[string]any{}, "prompt is required"},
		{"invalid sandbox", map[string]any{"prompt": "p", "sandbox": "chroot"}, "invalid sandbox"},
		{"invalid effort", map[string]any{"prompt": "p", "reasoningEffort": "maximal"}, "invalid reasoningEffort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.spawnSubagentHandler(ctx, toolCall("codex_spawn_subagent", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.expected)
		})
	}
}

func TestSpawnSubagentsGroup(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	result, err := s.spawnSubagentsHandler(ctx, toolCall("codex_spawn_subagents", map[string]any{
		"defaults": map[string]any{"model": "gpt-5", "sandbox": "read-only"},
		"jobs": []any{
			map[string]any{"prompt": "job one", "label": "a"},
			map[string]any{"label": "broken"},
			map[string]any{"prompt": "job two", "model": "gpt-5-mini"},
		},
	}))
	require.NoError(t, err)

	payload := decodeResult(t, result)
	results, ok := payload["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)

	first := results[0].(map[string]any)
	require.NotEmpty(t, first["jobId"])
	assert.Equal(t, "a", first["label"])

	second := results[1].(map[string]any)
	assert.Contains(t, second["error"], "prompt is required")
	assert.Equal(t, "broken", second["label"])
	assert.Nil(t, second["jobId"])

	third := results[2].(map[string]any)
	require.NotEmpty(t, third["jobId"])

	// Group defaults fill unset fields; per-job values win.
	firstMeta, err := s.Manager().GetSpawnMetadata(first["jobId"].(string))
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", firstMeta.Effective.Model)
	assert.Equal(t, "read-only", firstMeta.Effective.Sandbox)

	thirdMeta, err := s.Manager().GetSpawnMetadata(third["jobId"].(string))
	require.NoError(t, err)
	assert.Equal(t, "gpt-5-mini", thirdMeta.Effective.Model)

	waitForJob(t, s, first["jobId"].(string))
	waitForJob(t, s, third["jobId"].(string))
}

func TestSubagentResultFallbackMessage(t *testing.T) {
	s := newTestServer(t, "exit 1")
	ctx := context.Background()

	spawn, err := s.spawnSubagentHandler(ctx, toolCall("codex_spawn_subagent", map[string]any{"prompt": "p"}))
	require.NoError(t, err)
	jobID := decodeResult(t, spawn)["jobId"].(string)
	waitForJob(t, s, jobID)

	result, err := s.subagentResultHandler(ctx, toolCall("codex_subagent_result", map[string]any{"jobId": jobID}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "failed without producing a final message")
	assert.Contains(t, text, "Exit code: 1")

	bad, err := s.subagentResultHandler(ctx, toolCall("codex_subagent_result", map[string]any{
		"jobId": jobID,
		"view":  "summary",
	}))
	require.NoError(t, err)
	assert.True(t, bad.IsError)
	assert.Contains(t, resultText(t, bad), "invalid view")
}

func TestSubagentEventsNumericCursor(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	spawn, err := s.spawnSubagentHandler(ctx, toolCall("codex_spawn_subagent", map[string]any{"prompt": "p"}))
	require.NoError(t, err)
	jobID := decodeResult(t, spawn)["jobId"].(string)
	waitForJob(t, s, jobID)

	// Clients that send the cursor as a JSON number still paginate correctly.
	page, err := s.subagentEventsHandler(ctx, toolCall("codex_subagent_events", map[string]any{
		"jobId":     jobID,
		"cursor":    float64(1),
		"maxEvents": float64(1),
	}))
	require.NoError(t, err)
	payload := decodeResult(t, page)
	assert.Equal(t, "2", payload["nextCursor"])
}

func TestWaitAnyHandler(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	missing, err := s.waitAnyHandler(ctx, toolCall("codex_wait_any", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, missing.IsError)
	assert.Contains(t, resultText(t, missing), "jobIds must be a non-empty array")

	unknown, err := s.waitAnyHandler(ctx, toolCall("codex_wait_any", map[string]any{
		"jobIds":    []any{"ghost"},
		"timeoutMs": float64(100),
	}))
	require.NoError(t, err)
	payload := decodeResult(t, unknown)
	assert.Nil(t, payload["completedJobId"])
	assert.False(t, payload["timedOut"].(bool))
	assert.Contains(t, payload["missingJobIds"], "ghost")

	spawn, err := s.spawnSubagentHandler(ctx, toolCall("codex_spawn_subagent", map[string]any{"prompt": "p"}))
	require.NoError(t, err)
	jobID := decodeResult(t, spawn)["jobId"].(string)

	done, err := s.waitAnyHandler(ctx, toolCall("codex_wait_any", map[string]any{
		"jobIds":    []any{jobID},
		"timeoutMs": float64(10_000),
	}))
	require.NoError(t, err)
	donePayload := decodeResult(t, done)
	assert.Equal(t, jobID, donePayload["completedJobId"])
}

func TestInterruptHandlerValidation(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	missing, err := s.interruptSubagentHandler(ctx, toolCall("codex_interrupt_subagent", map[string]any{
		"jobId": "whatever",
	}))
	require.NoError(t, err)
	assert.True(t, missing.IsError)
	assert.Contains(t, resultText(t, missing), "newPrompt is required")

	badSandbox, err := s.interruptSubagentHandler(ctx, toolCall("codex_interrupt_subagent", map[string]any{
		"jobId":     "whatever",
		"newPrompt": "p",
		"overrides": map[string]any{"sandbox": "chroot"},
	}))
	require.NoError(t, err)
	assert.True(t, badSandbox.IsError)
	assert.Contains(t, resultText(t, badSandbox), "invalid sandbox")

	unknown, err := s.interruptSubagentHandler(ctx, toolCall("codex_interrupt_subagent", map[string]any{
		"jobId":     "ghost",
		"newPrompt": "p",
	}))
	require.NoError(t, err)
	assert.True(t, unknown.IsError)
	assert.Contains(t, resultText(t, unknown), "unknown jobId")
}

func TestExecAndReplyHandlers(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	exec, err := s.execHandler(ctx, toolCall("codex_exec", map[string]any{
		"prompt":       "summarize the repo",
		"startSession": true,
	}))
	require.NoError(t, err)
	payload := decodeResult(t, exec)
	assert.Equal(t, "task finished", payload["finalMessage"])
	assert.Equal(t, "thr-test", payload["threadId"])
	sessionID, _ := payload["sessionId"].(string)
	require.NotEmpty(t, sessionID)

	reply, err := s.replyHandler(ctx, toolCall("codex_reply", map[string]any{
		"sessionId": sessionID,
		"prompt":    "now write the tests",
	}))
	require.NoError(t, err)
	replyPayload := decodeResult(t, reply)
	assert.Equal(t, sessionID, replyPayload["sessionId"])
	assert.Equal(t, "task finished", replyPayload["finalMessage"])
}

func TestReplyHandlerErrors(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	unknown, err := s.replyHandler(ctx, toolCall("codex_reply", map[string]any{
		"sessionId": "ghost",
		"prompt":    "p",
	}))
	require.NoError(t, err)
	assert.True(t, unknown.IsError)
	assert.Contains(t, resultText(t, unknown), "unknown sessionId")

	// A session that never completed a turn has no thread to resume.
	state := s.sessions.CreateSession(codex.EffectiveOptions{Sandbox: codex.SandboxWorkspaceWrite})
	noThread, err := s.replyHandler(ctx, toolCall("codex_reply", map[string]any{
		"sessionId": state.ID,
		"prompt":    "p",
	}))
	require.NoError(t, err)
	assert.True(t, noThread.IsError)
	assert.Contains(t, resultText(t, noThread), "no agent thread yet")

	missingPrompt, err := s.replyHandler(ctx, toolCall("codex_reply", map[string]any{
		"sessionId": state.ID,
	}))
	require.NoError(t, err)
	assert.True(t, missingPrompt.IsError)
	assert.Contains(t, resultText(t, missingPrompt), "prompt is required")
}

func TestReviewHandler(t *testing.T) {
	s := newTestServer(t, agentScript)
	ctx := context.Background()

	result, err := s.reviewHandler(ctx, toolCall("codex_review", map[string]any{
		"scope": "the last commit",
	}))
	require.NoError(t, err)
	assert.Equal(t, "task finished", resultText(t, result))
}

func TestBuildReviewPrompt(t *testing.T) {
	prompt := buildReviewPrompt("uncommitted changes", "focus on error handling")
	assert.Contains(t, prompt, "Review uncommitted changes in this repository.")
	assert.Contains(t, prompt, "ordered by severity")
	assert.Contains(t, prompt, "focus on error handling")

	bare := buildReviewPrompt("the diff", "")
	assert.NotContains(t, bare, "Additional instructions")
}
