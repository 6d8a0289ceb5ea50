package codex

import "fmt"

// Sandbox policy names accepted by the codex CLI.
const (
	SandboxReadOnly         = "read-only"
	SandboxWorkspaceWrite   = "workspace-write"
	SandboxDangerFullAccess = "danger-full-access"
)

// Reasoning effort levels accepted by the codex CLI.
const (
	ReasoningLow    = "low"
	ReasoningMedium = "medium"
	ReasoningHigh   = "high"
)

// IsValidSandbox reports whether name is one of the known sandbox policies.
func IsValidSandbox(name string) bool {
	switch name {
	case SandboxReadOnly, SandboxWorkspaceWrite, SandboxDangerFullAccess:
		return true
	}
	return false
}

// IsValidReasoningEffort reports whether name is a known effort level.
func IsValidReasoningEffort(name string) bool {
	switch name {
	case ReasoningLow, ReasoningMedium, ReasoningHigh:
		return true
	}
	return false
}

// SpawnRequest holds the caller-supplied arguments for a subagent spawn,
// before resolution.
type SpawnRequest struct {
	Prompt           string `json:"prompt"`
	Model            string `json:"model,omitempty"`
	ReasoningEffort  string `json:"reasoningEffort,omitempty"`
	Sandbox          string `json:"sandbox,omitempty"`
	FullAuto         bool   `json:"fullAuto,omitempty"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
	Label            string `json:"label,omitempty"`
}

// EffectiveOptions are the settings actually applied to a spawned child
// after precedence resolution. Interrupt/respawn inherits them verbatim.
type EffectiveOptions struct {
	Model            string `json:"model,omitempty"`
	ReasoningEffort  string `json:"reasoningEffort,omitempty"`
	Sandbox          string `json:"sandbox,omitempty"`
	UseFullAuto      bool   `json:"useFullAuto"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
}

// SpawnMetadata bundles the caller-requested arguments, the resolved
// effective options, and the coordinator-supplied label. The label is echoed
// back but never consulted by execution.
type SpawnMetadata struct {
	Requested SpawnRequest     `json:"requested"`
	Effective EffectiveOptions `json:"effective"`
	Label     string           `json:"label,omitempty"`
}

// ResolveEffective computes the effective options for a spawn request.
// Sandbox precedence is caller-supplied, then the server environment
// default, then workspace-write. When full-auto is requested and neither
// the caller nor the environment names a sandbox, the sandbox is left unset
// and the --full-auto flag carries instead. An explicit sandbox always
// suppresses full-auto.
func ResolveEffective(req SpawnRequest, envDefault string) EffectiveOptions {
	opts := EffectiveOptions{
		Model:            req.Model,
		ReasoningEffort:  req.ReasoningEffort,
		WorkingDirectory: req.WorkingDirectory,
	}

	sandbox := req.Sandbox
	if sandbox == "" && IsValidSandbox(envDefault) {
		sandbox = envDefault
	}

	switch {
	case sandbox != "":
		opts.Sandbox = sandbox
	case req.FullAuto:
		opts.UseFullAuto = true
	default:
		opts.Sandbox = SandboxWorkspaceWrite
	}
	return opts
}

// BuildExecArgs builds the codex CLI argument vector for a one-shot run.
// The prompt is always the last positional. Arguments are passed to the
// child directly, never through a shell, so no quoting layer is needed.
func BuildExecArgs(opts EffectiveOptions, prompt string) []string {
	args := []string{"exec", "--json"}
	args = appendOptionArgs(args, opts)
	args = append(args, "--skip-git-repo-check", prompt)
	return args
}

// BuildResumeArgs builds the argument vector for resuming an existing
// thread, used by the multi-turn synchronous path.
func BuildResumeArgs(threadID string, opts EffectiveOptions, prompt string) []string {
	args := []string{"exec", "resume", threadID, "--json"}
	args = appendOptionArgs(args, opts)
	args = append(args, "--skip-git-repo-check", prompt)
	return args
}

func appendOptionArgs(args []string, opts EffectiveOptions) []string {
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.ReasoningEffort != "" {
		args = append(args, "-c", fmt.Sprintf("model_reasoning_effort=%q", opts.ReasoningEffort))
	}
	if opts.Sandbox != "" {
		args = append(args, "--sandbox", opts.Sandbox)
	}
	if opts.UseFullAuto {
		args = append(args, "--full-auto")
	}
	if opts.WorkingDirectory != "" {
		args = append(args, "-C", opts.WorkingDirectory)
	}
	return args
}
