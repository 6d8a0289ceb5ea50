package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// addUtilityTools registers ping and help.
func (s *Server) addUtilityTools() {
	s.server.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Health check; returns pong"),
	), s.pingHandler)

	s.server.AddTool(mcp.NewTool("codex_help",
		mcp.WithDescription("Describe the codex tools exposed by this server and how to use them"),
	), s.helpHandler)
}

// addExecTools registers the synchronous, blocking invocations of the agent.
func (s *Server) addExecTools() {
	s.server.AddTool(mcp.NewTool("codex_exec",
		mcp.WithDescription("Run the codex agent to completion and return its final message. Blocks until the agent exits."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("Task for the agent")),
		mcp.WithString("model", mcp.Description("Model override (optional)")),
		mcp.WithString("reasoningEffort", mcp.Description("Reasoning effort: low, medium or high (optional)")),
		mcp.WithString("sandbox", mcp.Description("Sandbox policy: read-only, workspace-write or danger-full-access (optional)")),
		mcp.WithBoolean("fullAuto", mcp.Description("Pass --full-auto when no sandbox is configured")),
		mcp.WithString("workingDirectory", mcp.Description("Working directory for the agent (optional)")),
		mcp.WithBoolean("startSession", mcp.Description("Create a session so the conversation can be continued with codex_reply")),
	), s.execHandler)

	s.server.AddTool(mcp.NewTool("codex_reply",
		mcp.WithDescription("Continue a previous codex_exec conversation in the same agent thread"),
		mcp.WithString("sessionId", mcp.Required(), mcp.Description("Session returned by codex_exec with startSession=true")),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("Follow-up instructions")),
	), s.replyHandler)
}

// addReviewTool registers the code-review wrapper.
func (s *Server) addReviewTool() {
	s.server.AddTool(mcp.NewTool("codex_review",
		mcp.WithDescription("Run a read-only codex review of the working tree and return the findings"),
		mcp.WithString("scope", mcp.Description("What to review, e.g. 'uncommitted changes' or a path (default: uncommitted changes)")),
		mcp.WithString("instructions", mcp.Description("Extra review instructions (optional)")),
		mcp.WithString("workingDirectory", mcp.Description("Repository to review (optional)")),
	), s.reviewHandler)
}

// addSubagentTools registers the asynchronous subagent job surface.
func (s *Server) addSubagentTools() {
	s.server.AddTool(mcp.NewTool("codex_spawn_subagent",
		mcp.WithDescription("Spawn an asynchronous codex subagent job and return its jobId immediately"),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("Task for the subagent")),
		mcp.WithString("model", mcp.Description("Model override (optional)")),
		mcp.WithString("reasoningEffort", mcp.Description("Reasoning effort: low, medium or high (optional)")),
		mcp.WithString("sandbox", mcp.Description("Sandbox policy: read-only, workspace-write or danger-full-access (optional)")),
		mcp.WithBoolean("fullAuto", mcp.Description("Pass --full-auto when no sandbox is configured")),
		mcp.WithString("workingDirectory", mcp.Description("Working directory for the subagent (optional)")),
		mcp.WithString("label", mcp.Description("Free-form label echoed back in metadata (optional)")),
	), s.spawnSubagentHandler)

	s.server.AddTool(mcp.NewTool("codex_spawn_subagents",
		mcp.WithDescription("Spawn several subagent jobs at once; per-job failures do not abort the group"),
		mcp.WithArray("jobs", mcp.Required(), mcp.Description("Array of spawn requests: [{prompt, model?, reasoningEffort?, sandbox?, fullAuto?, workingDirectory?, label?}]")),
		mcp.WithObject("defaults", mcp.Description("Defaults applied to every job unless the job overrides them")),
		mcp.WithBoolean("includeHandshake", mcp.Description("Include each job's first events in the response")),
		mcp.WithNumber("handshakeMaxEvents", mcp.Description("Maximum handshake events per job (max 25)")),
	), s.spawnSubagentsHandler)

	s.server.AddTool(mcp.NewTool("codex_subagent_status",
		mcp.WithDescription("Get the status of a subagent job"),
		mcp.WithString("jobId", mcp.Required(), mcp.Description("Job identifier")),
	), s.subagentStatusHandler)

	s.server.AddTool(mcp.NewTool("codex_subagent_result",
		mcp.WithDescription("Get a subagent job's final message, or its full result with output tails"),
		mcp.WithString("jobId", mcp.Required(), mcp.Description("Job identifier")),
		mcp.WithString("view", mcp.Description("finalMessage (default) or full")),
	), s.subagentResultHandler)

	s.server.AddTool(mcp.NewTool("codex_subagent_events",
		mcp.WithDescription("Read a subagent job's normalized events incrementally with a cursor"),
		mcp.WithString("jobId", mcp.Required(), mcp.Description("Job identifier")),
		mcp.WithString("cursor", mcp.Description("Cursor from a previous call (default 0)")),
		mcp.WithNumber("maxEvents", mcp.Description("Maximum events to return (default 200, max 2000)")),
	), s.subagentEventsHandler)

	s.server.AddTool(mcp.NewTool("codex_cancel_subagent",
		mcp.WithDescription("Request cancellation of a running subagent job"),
		mcp.WithString("jobId", mcp.Required(), mcp.Description("Job identifier")),
		mcp.WithBoolean("force", mcp.Description("Kill immediately instead of terminating gracefully")),
	), s.cancelSubagentHandler)

	s.server.AddTool(mcp.NewTool("codex_wait_any",
		mcp.WithDescription("Wait until the first of several subagent jobs finishes, or a timeout elapses"),
		mcp.WithArray("jobIds", mcp.Required(), mcp.Description("Job identifiers to wait on")),
		mcp.WithNumber("timeoutMs", mcp.Description("Timeout in milliseconds (default 0, max 5 minutes)")),
	), s.waitAnyHandler)

	s.server.AddTool(mcp.NewTool("codex_interrupt_subagent",
		mcp.WithDescription("Cancel a running subagent and respawn it with new instructions plus a tail of its recent events"),
		mcp.WithString("jobId", mcp.Required(), mcp.Description("Job to interrupt")),
		mcp.WithString("newPrompt", mcp.Required(), mcp.Description("Updated instructions for the replacement job")),
		mcp.WithNumber("waitMs", mcp.Description("How long to wait for the canceled job to exit (default 250, max 60000)")),
		mcp.WithBoolean("includeEventTail", mcp.Description("Inject the interrupted job's recent events into the new prompt (default true)")),
		mcp.WithNumber("tailMaxEvents", mcp.Description("Maximum injected events (default 25, max 25)")),
		mcp.WithObject("overrides", mcp.Description("Option overrides for the respawn: {model?, reasoningEffort?, sandbox?, fullAuto?, workingDirectory?}")),
	), s.interruptSubagentHandler)
}
