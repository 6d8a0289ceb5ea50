package codex

import (
	"time"
)

// EventType classifies a normalized event.
type EventType string

const (
	// EventMessage is an assistant message from the agent
	EventMessage EventType = "message"
	// EventProgress is a lifecycle or informational update
	EventProgress EventType = "progress"
	// EventToolCall is a tool invocation starting or updating
	EventToolCall EventType = "tool_call"
	// EventToolResult is a completed tool invocation
	EventToolResult EventType = "tool_result"
	// EventError is an error reported by the agent or the ingest path
	EventError EventType = "error"
	// EventFinal is the terminal event appended when a job finishes
	EventFinal EventType = "final"
)

// NormalizedEvent is one record in a job's event stream. Events are
// immutable once appended; Timestamp is assigned at ingest time, not from
// anything the agent claims.
type NormalizedEvent struct {
	Type      EventType      `json:"type"`
	Content   map[string]any `json:"content"`
	Timestamp string         `json:"timestamp"`
}

// NewEvent creates a NormalizedEvent stamped with the current time.
func NewEvent(eventType EventType, content map[string]any) NormalizedEvent {
	return NormalizedEvent{
		Type:      eventType,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// NormalizeEvent converts one decoded codex JSONL event into a
// NormalizedEvent. It returns false only when the input is not an object or
// lacks a string "type" field; every other shape, including unknown types,
// produces an event. The function is pure apart from timestamping and never
// consults job state.
func NormalizeEvent(raw any) (NormalizedEvent, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return NormalizedEvent{}, false
	}
	eventType, ok := obj["type"].(string)
	if !ok {
		return NormalizedEvent{}, false
	}

	switch eventType {
	case "thread.started":
		return NewEvent(EventProgress, map[string]any{
			"threadId": obj["thread_id"],
		}), true

	case "turn.started":
		return NewEvent(EventProgress, map[string]any{
			"kind": "turn.started",
		}), true

	case "turn.completed":
		return NewEvent(EventProgress, map[string]any{
			"kind":  "turn.completed",
			"usage": obj["usage"],
		}), true

	case "turn.failed":
		return NewEvent(EventError, map[string]any{
			"kind":  "turn.failed",
			"error": obj["error"],
		}), true

	case "error":
		return NewEvent(EventError, obj), true

	case "item.started", "item.updated", "item.completed":
		return normalizeItemEvent(eventType, obj), true

	default:
		return NewEvent(EventProgress, obj), true
	}
}

// normalizeItemEvent classifies the item.* wrapper events by the nested
// item type. The tool_call vs tool_result tie-break is governed solely by
// whether the wrapper is item.completed.
func normalizeItemEvent(kind string, obj map[string]any) NormalizedEvent {
	item, _ := obj["item"].(map[string]any)
	itemType, _ := item["type"].(string)
	completed := kind == "item.completed"

	callType := EventToolCall
	if completed {
		callType = EventToolResult
	}

	switch itemType {
	case "agent_message":
		return NewEvent(EventMessage, map[string]any{
			"kind":     kind,
			"itemType": itemType,
			"itemId":   item["id"],
			"text":     item["text"],
		})

	case "reasoning":
		return NewEvent(EventProgress, map[string]any{
			"kind":     kind,
			"itemType": itemType,
			"itemId":   item["id"],
			"text":     item["text"],
		})

	case "command_execution":
		return NewEvent(callType, map[string]any{
			"command":  item["command"],
			"status":   item["status"],
			"exitCode": item["exit_code"],
		})

	case "file_change":
		return NewEvent(callType, map[string]any{
			"changes": item["changes"],
			"status":  item["status"],
		})

	case "mcp_tool_call":
		return NewEvent(callType, map[string]any{
			"server":    item["server"],
			"tool":      item["tool"],
			"status":    item["status"],
			"arguments": item["arguments"],
			"result":    item["result"],
			"error":     item["error"],
		})

	case "web_search":
		return NewEvent(callType, map[string]any{
			"query": item["query"],
		})

	case "todo_list":
		return NewEvent(EventProgress, map[string]any{
			"items": item["items"],
		})

	case "error":
		return NewEvent(EventError, map[string]any{
			"message": item["message"],
		})

	default:
		// Missing or unknown item type
		return NewEvent(EventProgress, map[string]any{
			"kind": kind,
			"item": obj["item"],
		})
	}
}
