package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Pein2017/codex-mcp-server/internal/codex"
	"github.com/Pein2017/codex-mcp-server/internal/config"
	"github.com/Pein2017/codex-mcp-server/internal/sentry"
)

func (s *Server) pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong"), nil
}

func (s *Server) helpHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("Codex MCP Server tools\n\n")
	b.WriteString("Synchronous:\n")
	b.WriteString("  codex_exec      - run the agent to completion; startSession=true enables codex_reply\n")
	b.WriteString("  codex_reply     - continue a codex_exec session in the same agent thread\n")
	b.WriteString("  codex_review    - read-only review of the working tree\n\n")
	b.WriteString("Asynchronous subagents:\n")
	b.WriteString("  codex_spawn_subagent    - start a job, returns jobId immediately\n")
	b.WriteString("  codex_spawn_subagents   - start a group of jobs\n")
	b.WriteString("  codex_subagent_status   - poll a job's status\n")
	b.WriteString("  codex_subagent_result   - final message (default) or full result with output tails\n")
	b.WriteString("  codex_subagent_events   - incremental normalized events, cursor-paginated\n")
	b.WriteString("  codex_cancel_subagent   - request cancellation (force=true kills immediately)\n")
	b.WriteString("  codex_wait_any          - block until the first of several jobs finishes\n")
	b.WriteString("  codex_interrupt_subagent - cancel and respawn with new instructions plus recent context\n\n")
	b.WriteString("Jobs are in-memory only; jobIds do not survive a server restart.\n")
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) execHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req, err := parseSpawnRequest(args, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sentry.AddBreadcrumb("exec", "codex_exec", map[string]any{"model": req.Model})

	effective := codex.ResolveEffective(req, config.DefaultSandbox())
	outcome, err := codex.RunExec(ctx, s.config.CodexBin, codex.BuildExecArgs(effective, req.Prompt))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to run codex: %v", err)), nil
	}

	payload := map[string]any{
		"finalMessage": outcome.LastAgentMessage,
		"exitCode":     outcome.ExitCode,
		"threadId":     outcome.ThreadID,
	}
	if !outcome.Succeeded() {
		payload["stderrTail"] = outcome.StderrTail
	}

	if boolArg(args, "startSession") {
		state := s.sessions.CreateSession(effective)
		_ = s.sessions.RecordTurn(state.ID, outcome.ThreadID)
		payload["sessionId"] = state.ID
	}
	return jsonResult(payload), nil
}

func (s *Server) replyHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	sessionID := stringArg(args, "sessionId")
	prompt := stringArg(args, "prompt")
	if prompt == "" {
		return mcp.NewToolResultError("prompt is required"), nil
	}

	state, ok := s.sessions.GetSession(sessionID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown sessionId: %s", sessionID)), nil
	}
	threadID := state.ThreadIDSnapshot()
	if threadID == "" {
		return mcp.NewToolResultError("session has no agent thread yet; run codex_exec first"), nil
	}

	outcome, err := codex.RunExec(ctx, s.config.CodexBin, codex.BuildResumeArgs(threadID, state.Effective, prompt))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to run codex: %v", err)), nil
	}
	_ = s.sessions.RecordTurn(sessionID, outcome.ThreadID)

	payload := map[string]any{
		"sessionId":    sessionID,
		"finalMessage": outcome.LastAgentMessage,
		"exitCode":     outcome.ExitCode,
		"threadId":     outcome.ThreadID,
	}
	if !outcome.Succeeded() {
		payload["stderrTail"] = outcome.StderrTail
	}
	return jsonResult(payload), nil
}

func (s *Server) reviewHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	scope := stringArg(args, "scope")
	if scope == "" {
		scope = "uncommitted changes"
	}
	prompt := buildReviewPrompt(scope, stringArg(args, "instructions"))

	// Reviews never modify the tree, so the sandbox is forced read-only.
	effective := codex.EffectiveOptions{
		Sandbox:          codex.SandboxReadOnly,
		WorkingDirectory: stringArg(args, "workingDirectory"),
	}
	outcome, err := codex.RunExec(ctx, s.config.CodexBin, codex.BuildExecArgs(effective, prompt))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to run codex: %v", err)), nil
	}
	if !outcome.Succeeded() {
		return mcp.NewToolResultError(fmt.Sprintf("review run failed: %s", outcome.StderrTail)), nil
	}
	return mcp.NewToolResultText(outcome.LastAgentMessage), nil
}

func buildReviewPrompt(scope, instructions string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review %s in this repository.\n\n", scope)
	b.WriteString("Report concrete findings ordered by severity: bugs, correctness risks, and regressions first, then style issues.\n")
	b.WriteString("For each finding include the file, the location, and a short suggested fix.\n")
	if instructions != "" {
		b.WriteString("\nAdditional instructions:\n")
		b.WriteString(instructions)
		b.WriteString("\n")
	}
	return b.String()
}
