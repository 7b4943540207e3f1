// Package llmclient wraps the OpenAI-compatible Chat Completions endpoint
// consumed by the Planner and Responder. It is built on
// github.com/openai/openai-go/v3 configured with a custom base URL, and
// applies the transport retry-once-then-abort policy: on network error,
// non-2xx status, or a malformed envelope, the same request is retried
// exactly once before a typed agenterr.Transport error surfaces.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/coreloop/agentcore/pkg/agenterr"
	"github.com/coreloop/agentcore/pkg/logger"
)

// Message is one entry of the Chat Completions conversation.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCallPart
}

// ToolCallPart is a structured tool call attached to an assistant message,
// used when replaying prior turns back to the endpoint.
type ToolCallPart struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolDefinition is one entry of the structured-tool channel, built from
// pkg/toolrunner's catalogue so the wire shape is never duplicated.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ResponseToolCall is a structured tool call returned by the endpoint.
type ResponseToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Response is the normalised result of one Chat Completions call.
type Response struct {
	Content      string
	ToolCalls    []ResponseToolCall
	FinishReason string
}

// Options carries the request-level knobs named in spec §6: temperature,
// max_tokens, and whether the structured tool channel should be used.
type Options struct {
	Temperature           float64
	MaxTokens             int
	EnableFunctionCalling bool
}

// Client wraps *openai.Client with the base URL pointed at a configured
// vLLM-compatible endpoint.
type Client struct {
	inner *openai.Client
	model string
}

// New builds a Client. baseURL is required; apiKey may be empty for
// endpoints that do not enforce auth.
func New(baseURL, apiKey, model string) *Client {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(baseURL, "/")),
		option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	inner := openai.NewClient(opts...)
	return &Client{inner: &inner, model: model}
}

// Chat sends one Chat Completions request, retrying exactly once on
// network error, non-2xx response, or a malformed envelope (no choices).
// The second failure surfaces as *agenterr.Transport.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts Options) (*Response, error) {
	params := c.buildParams(messages, tools, opts)

	resp, err := c.call(ctx, params)
	if err == nil {
		return resp, nil
	}

	logger.WarnCF("llmclient", "chat completion failed, retrying once", map[string]any{"error": err.Error()})
	resp, err = c.call(ctx, params)
	if err == nil {
		return resp, nil
	}

	var transportErr *agenterr.Transport
	if errors.As(err, &transportErr) {
		return nil, transportErr
	}
	return nil, &agenterr.Transport{Cause: err}
}

func (c *Client) call(ctx context.Context, params openai.ChatCompletionNewParams) (*Response, error) {
	resp, err := c.inner.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &agenterr.Transport{
				StatusCode: apiErr.StatusCode,
				BodyPrefix: firstN(apiErr.Message, 256),
				Cause:      apiErr,
			}
		}
		return nil, &agenterr.Transport{Cause: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &agenterr.Transport{BodyPrefix: "empty choices"}
	}

	choice := resp.Choices[0]
	return &Response{
		Content:      choice.Message.Content,
		ToolCalls:    parseToolCalls(choice.Message.ToolCalls),
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (c *Client) buildParams(messages []Message, tools []ToolDefinition, opts Options) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: buildMessages(messages),
	}

	if opts.EnableFunctionCalling && len(tools) > 0 {
		params.Tools = buildTools(tools)
		params.ToolChoice.OfAuto = openai.String(string(openai.ChatCompletionToolChoiceOptionAutoAuto))
	}

	if opts.Temperature > 0 {
		params.Temperature = openai.Opt(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Opt(int64(opts.MaxTokens))
	}

	return params
}

func buildMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, buildAssistantMessage(m))
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func buildAssistantMessage(m Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		assistant.Content.OfString = openai.String(m.Content)
	}
	for _, tc := range m.ToolCalls {
		args := "{}"
		if len(tc.Arguments) > 0 {
			if b, err := json.Marshal(tc.Arguments); err == nil {
				args = string(b)
			}
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: args,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func buildTools(tools []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  shared.FunctionParameters(t.Parameters),
		}))
	}
	return out
}

func parseToolCalls(calls []openai.ChatCompletionMessageToolCallUnion) []ResponseToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ResponseToolCall, 0, len(calls))
	for _, call := range calls {
		fn, ok := call.AsAny().(openai.ChatCompletionMessageFunctionToolCall)
		if !ok {
			continue
		}
		args := map[string]any{}
		if strings.TrimSpace(fn.Function.Arguments) != "" {
			_ = json.Unmarshal([]byte(fn.Function.Arguments), &args)
		}
		out = append(out, ResponseToolCall{ID: fn.ID, Name: fn.Function.Name, Arguments: args})
	}
	return out
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
