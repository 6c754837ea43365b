package llm

import (
	"context"

	"github.com/BaSui01/groupchat/types"
)

// ChatRequest is one reply-generation call. Temperature is a pointer so that
// "unset" and an explicit 0 stay distinguishable.
type ChatRequest struct {
	Model       string                 `json:"model"`
	Messages    []types.Message        `json:"messages"`
	Temperature *float32               `json:"temperature,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Stop        []string               `json:"stop,omitempty"`
	Functions   []types.FunctionSchema `json:"functions,omitempty"`
	ToolChoice  string                 `json:"tool_choice,omitempty"` // auto/none/<function name>
}

// ChatUsage reports token consumption for a single call.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ChatResponse carries the produced message. Message.ToolCalls is set when the
// backend chose to invoke a declared function.
type ChatResponse struct {
	ID       string        `json:"id,omitempty"`
	Provider string        `json:"provider,omitempty"`
	Model    string        `json:"model"`
	Message  types.Message `json:"message"`
	Usage    ChatUsage     `json:"usage,omitempty"`
}

// Provider 定义了统一的回复生成后端接口。
// 实现只负责传输与序列化；调用方不对延迟做任何假设，只要求最终完成或失败。
type Provider interface {
	// Name 返回 Provider 的唯一标识
	Name() string

	// Completion 发起同步聊天请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// TransportError wraps a backend failure in the framework error type.
func TransportError(provider string, err error) *types.Error {
	if e, ok := types.AsError(err); ok {
		return e
	}
	return types.NewError(types.ErrTransport, "provider "+provider+" request failed").WithCause(err)
}
