package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	anthropicVersion       = "2023-06-01"
	anthropicDefaultURL    = "https://api.anthropic.com"
	anthropicDefaultTokens = 4096
)

// AnthropicChatModel speaks the Anthropic messages API directly. The eino
// OpenAI client cannot express tool_use/tool_result blocks, so this adapter
// translates between schema.Message and the native wire format.
type AnthropicChatModel struct {
	config *AnthropicConfig
	client *http.Client
	tools  []*schema.ToolInfo
}

type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float32
	Timeout     time.Duration
	// HTTPClient overrides the default client, e.g. to route requests
	// through a proxy. Optional.
	HTTPClient *http.Client
}

func NewAnthropicChatModel(ctx context.Context, config *AnthropicConfig) (*AnthropicChatModel, error) {
	if config == nil {
		return nil, fmt.Errorf("anthropic config is required")
	}
	client := config.HTTPClient
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 300 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &AnthropicChatModel{
		config: config,
		client: client,
	}, nil
}

func (m *AnthropicChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.tools = tools
	return nil
}

func (m *AnthropicChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	maxTokens := m.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultTokens
	}
	reqBody := map[string]interface{}{
		"model":      m.config.Model,
		"max_tokens": maxTokens,
	}
	if m.config.Temperature != nil {
		reqBody["temperature"] = *m.config.Temperature
	}

	var messages []map[string]interface{}
	var systemPrompt string

	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			systemPrompt += msg.Content + "\n"
		case schema.User:
			messages = append(messages, map[string]interface{}{
				"role":    "user",
				"content": msg.Content,
			})
		case schema.Assistant:
			content := []map[string]interface{}{}
			if msg.Content != "" {
				content = append(content, map[string]interface{}{
					"type": "text",
					"text": msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					args = map[string]interface{}{}
				}
				content = append(content, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Function.Name,
					"input": args,
				})
			}
			messages = append(messages, map[string]interface{}{
				"role":    "assistant",
				"content": content,
			})
		case schema.Tool:
			// Anthropic carries tool results as a user message holding a
			// tool_result block keyed by the originating tool_use id.
			messages = append(messages, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":        "tool_result",
						"tool_use_id": msg.ToolCallID,
						"content":     msg.Content,
					},
				},
			})
		}
	}

	if systemPrompt != "" {
		reqBody["system"] = strings.TrimSpace(systemPrompt)
	}
	reqBody["messages"] = messages

	if len(m.tools) > 0 {
		tools, err := anthropicTools(m.tools)
		if err != nil {
			return nil, err
		}
		reqBody["tools"] = tools
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	fullURL := anthropicDefaultURL + "/v1/messages"
	if m.config.BaseURL != "" {
		fullURL = strings.TrimSuffix(m.config.BaseURL, "/") + "/v1/messages"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode, string(respBody))
	}

	type contentBlock struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		ID    string          `json:"id,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	}
	var result struct {
		Content []contentBlock `json:"content"`
		Role    string         `json:"role"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	responseMsg := &schema.Message{Role: schema.Assistant}
	for _, block := range result.Content {
		switch block.Type {
		case "text":
			responseMsg.Content += block.Text
		case "tool_use":
			inputStr := "{}"
			if len(block.Input) > 0 && json.Valid(block.Input) {
				inputStr = string(block.Input)
			}
			responseMsg.ToolCalls = append(responseMsg.ToolCalls, schema.ToolCall{
				ID: block.ID,
				Function: schema.FunctionCall{
					Name:      block.Name,
					Arguments: inputStr,
				},
			})
		}
	}
	return responseMsg, nil
}

func (m *AnthropicChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported yet")
}

// anthropicTools converts eino tool definitions to the messages API shape.
// ParamsOneOf must go through ToJSONSchema; marshalling it directly yields
// an empty object and the model never sees the parameters.
func anthropicTools(infos []*schema.ToolInfo) ([]map[string]interface{}, error) {
	tools := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		inputSchema := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		if info.ParamsOneOf != nil {
			js, err := info.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return nil, fmt.Errorf("failed to build schema for tool %s: %v", info.Name, err)
			}
			raw, err := json.Marshal(js)
			if err != nil {
				return nil, fmt.Errorf("failed to encode schema for tool %s: %v", info.Name, err)
			}
			decoded := map[string]interface{}{}
			if err := json.Unmarshal(raw, &decoded); err != nil {
				return nil, fmt.Errorf("failed to decode schema for tool %s: %v", info.Name, err)
			}
			inputSchema = decoded
		}
		tools = append(tools, map[string]interface{}{
			"name":         info.Name,
			"description":  info.Desc,
			"input_schema": inputSchema,
		})
	}
	return tools, nil
}
