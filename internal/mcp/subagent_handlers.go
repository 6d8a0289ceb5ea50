package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Pein2017/codex-mcp-server/internal/codex"
	"github.com/Pein2017/codex-mcp-server/internal/sentry"
)

const (
	defaultEventsPageSize = 200
	maxEventsPageSize     = 2000

	maxHandshakeEvents = 25
	// handshakeSettle is how long the group spawn waits before snapshotting
	// each job's first events for the handshake.
	handshakeSettle = 300 * time.Millisecond
)

// parseSpawnRequest builds a SpawnRequest from an argument map, applying
// group defaults first. Returns an error for invalid enum values.
func parseSpawnRequest(args, defaults map[string]any) (codex.SpawnRequest, error) {
	pick := func(key string) string {
		if v := stringArg(args, key); v != "" {
			return v
		}
		return stringArg(defaults, key)
	}
	pickBool := func(key string) bool {
		if v, ok := args[key].(bool); ok {
			return v
		}
		return boolArg(defaults, key)
	}

	req := codex.SpawnRequest{
		Prompt:           stringArg(args, "prompt"),
		Model:            pick("model"),
		ReasoningEffort:  pick("reasoningEffort"),
		Sandbox:          pick("sandbox"),
		FullAuto:         pickBool("fullAuto"),
		WorkingDirectory: pick("workingDirectory"),
		Label:            stringArg(args, "label"),
	}

	if req.Prompt == "" {
		return req, fmt.Errorf("prompt is required")
	}
	if req.ReasoningEffort != "" && !codex.IsValidReasoningEffort(req.ReasoningEffort) {
		return req, fmt.Errorf("invalid reasoningEffort: %s", req.ReasoningEffort)
	}
	if req.Sandbox != "" && !codex.IsValidSandbox(req.Sandbox) {
		return req, fmt.Errorf("invalid sandbox: %s", req.Sandbox)
	}
	return req, nil
}

func (s *Server) spawnSubagentHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req, err := parseSpawnRequest(args, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sentry.AddBreadcrumb("subagent", "spawn", map[string]any{"label": req.Label})

	result, err := s.manager.SpawnFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"jobId":     result.JobID,
		"status":    result.Status,
		"startedAt": result.StartedAt.Format(time.RFC3339),
	}), nil
}

func (s *Server) spawnSubagentsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	jobs, ok := args["jobs"].([]any)
	if !ok || len(jobs) == 0 {
		return mcp.NewToolResultError("jobs must be a non-empty array"), nil
	}
	defaults := objectArg(args, "defaults")
	includeHandshake := boolArg(args, "includeHandshake")
	handshakeMax := intArg(args, "handshakeMaxEvents", maxHandshakeEvents)
	if handshakeMax > maxHandshakeEvents {
		handshakeMax = maxHandshakeEvents
	}

	results := make([]map[string]any, 0, len(jobs))
	for _, rawJob := range jobs {
		jobArgs, _ := rawJob.(map[string]any)
		label := stringArg(jobArgs, "label")

		req, err := parseSpawnRequest(jobArgs, defaults)
		if err != nil {
			results = append(results, groupError(err, label))
			continue
		}

		spawned, err := s.manager.SpawnFromRequest(req)
		if err != nil {
			results = append(results, groupError(err, req.Label))
			continue
		}

		entry := map[string]any{
			"jobId":     spawned.JobID,
			"status":    spawned.Status,
			"startedAt": spawned.StartedAt.Format(time.RFC3339),
		}
		if req.Label != "" {
			entry["label"] = req.Label
		}
		results = append(results, entry)
	}

	if includeHandshake && handshakeMax > 0 {
		time.Sleep(handshakeSettle)
		for _, entry := range results {
			jobID, ok := entry["jobId"].(string)
			if !ok {
				continue
			}
			if tail, err := s.manager.GetEventTail(jobID, handshakeMax, nil); err == nil {
				entry["handshake"] = tail
			}
		}
	}

	return jsonResult(map[string]any{"results": results}), nil
}

func groupError(err error, label string) map[string]any {
	entry := map[string]any{"error": err.Error()}
	if label != "" {
		entry["label"] = label
	}
	return entry
}

func (s *Server) subagentStatusHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	info, err := s.manager.Status(stringArg(args, "jobId"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info), nil
}

func (s *Server) subagentResultHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	res, err := s.manager.Result(stringArg(args, "jobId"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	finalMessage := res.LastAgentMessage
	if finalMessage == "" {
		finalMessage = codex.FallbackFinalMessage(res.Status, res.ExitCode)
	}

	view := stringArg(args, "view")
	if view == "" || view == "finalMessage" {
		return mcp.NewToolResultText(finalMessage), nil
	}
	if view != "full" {
		return mcp.NewToolResultError(fmt.Sprintf("invalid view: %s", view)), nil
	}

	return jsonResult(map[string]any{
		"jobId":        res.JobID,
		"status":       res.Status,
		"startedAt":    res.StartedAt.Format(time.RFC3339),
		"finishedAt":   formatTimePtr(res.FinishedAt),
		"exitCode":     res.ExitCode,
		"finalMessage": finalMessage,
		"stdoutTail":   res.StdoutTail,
		"stderrTail":   res.StderrTail,
	}), nil
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func (s *Server) subagentEventsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	maxEvents := intArg(args, "maxEvents", defaultEventsPageSize)
	if maxEvents < 1 {
		maxEvents = 1
	}
	if maxEvents > maxEventsPageSize {
		maxEvents = maxEventsPageSize
	}

	cursor := stringArg(args, "cursor")
	if cursor == "" {
		// Tolerate numeric cursors from clients that do not round-trip the
		// string form.
		if n := intArg(args, "cursor", -1); n >= 0 {
			cursor = fmt.Sprintf("%d", n)
		}
	}

	page, err := s.manager.GetEvents(stringArg(args, "jobId"), cursor, maxEvents)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page), nil
}

func (s *Server) cancelSubagentHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	success, err := s.manager.Cancel(stringArg(args, "jobId"), boolArg(args, "force"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"success": success}), nil
}

func (s *Server) waitAnyHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	jobIDs := stringSliceArg(args, "jobIds")
	if len(jobIDs) == 0 {
		return mcp.NewToolResultError("jobIds must be a non-empty array"), nil
	}
	timeoutMs := intArg(args, "timeoutMs", 0)

	result := s.manager.WaitAny(jobIDs, time.Duration(timeoutMs)*time.Millisecond)

	payload := map[string]any{
		"completedJobId": nil,
		"timedOut":       result.TimedOut,
	}
	if result.CompletedJobID != "" {
		payload["completedJobId"] = result.CompletedJobID
	}
	if len(result.MissingJobIDs) > 0 {
		payload["missingJobIds"] = result.MissingJobIDs
	}
	return jsonResult(payload), nil
}

func (s *Server) interruptSubagentHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	jobID := stringArg(args, "jobId")
	newPrompt := stringArg(args, "newPrompt")
	if newPrompt == "" {
		return mcp.NewToolResultError("newPrompt is required"), nil
	}

	opts := codex.InterruptOptions{}
	if v, ok := args["waitMs"].(float64); ok {
		waitMs := int(v)
		opts.WaitMs = &waitMs
	}
	if v, ok := args["includeEventTail"].(bool); ok {
		opts.IncludeEventTail = &v
	}
	if v, ok := args["tailMaxEvents"].(float64); ok {
		tailMax := int(v)
		opts.TailMaxEvents = &tailMax
	}
	if raw := objectArg(args, "overrides"); raw != nil {
		overrides := &codex.SpawnOverrides{
			Model:            stringArg(raw, "model"),
			ReasoningEffort:  stringArg(raw, "reasoningEffort"),
			Sandbox:          stringArg(raw, "sandbox"),
			WorkingDirectory: stringArg(raw, "workingDirectory"),
		}
		if v, ok := raw["fullAuto"].(bool); ok {
			overrides.FullAuto = &v
		}
		if overrides.Sandbox != "" && !codex.IsValidSandbox(overrides.Sandbox) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid sandbox: %s", overrides.Sandbox)), nil
		}
		opts.Overrides = overrides
	}

	sentry.AddBreadcrumb("subagent", "interrupt", map[string]any{"jobId": jobID})

	result, err := s.manager.Interrupt(jobID, newPrompt, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result), nil
}
