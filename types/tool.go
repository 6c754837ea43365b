package types

import "encoding/json"

// FunctionSchema declares a callable function a reply may invoke.
type FunctionSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FunctionResult is the outcome of routing a ToolCall to a local handler.
type FunctionResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Result     string `json:"result"`
	Error      string `json:"error,omitempty"`
}

// Content renders the result as reply text.
func (fr FunctionResult) Content() string {
	if fr.Error != "" {
		return "Error: " + fr.Error
	}
	return fr.Result
}

// IsError returns true if the function execution failed.
func (fr FunctionResult) IsError() bool {
	return fr.Error != ""
}
