package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// CompatibleWrapper wraps an OpenAI-compatible chat model and rewrites the
// opaque HTTP errors of gateway providers into messages a user can act on.
type CompatibleWrapper struct {
	inner   model.BaseChatModel
	baseURL string
	logger  func(string)
}

func NewCompatibleWrapper(inner model.BaseChatModel, baseURL string, logger func(string)) *CompatibleWrapper {
	return &CompatibleWrapper{
		inner:   inner,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (w *CompatibleWrapper) log(msg string) {
	if w.logger != nil {
		w.logger(msg)
	}
}

func (w *CompatibleWrapper) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	resp, err := w.inner.Generate(ctx, input, opts...)
	if err != nil {
		return nil, w.improveErrorMessage(err)
	}
	return resp, nil
}

func (w *CompatibleWrapper) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reader, err := w.inner.Stream(ctx, input, opts...)
	if err != nil {
		return nil, w.improveErrorMessage(err)
	}
	return reader, nil
}

// BindTools delegates to the inner model when it supports tool binding.
func (w *CompatibleWrapper) BindTools(tools []*schema.ToolInfo) error {
	if binder, ok := w.inner.(interface{ BindTools([]*schema.ToolInfo) error }); ok {
		return binder.BindTools(tools)
	}
	return nil
}

// improveErrorMessage maps common gateway failures to actionable text. The
// eino client surfaces raw HTTP status lines, which tell the user nothing
// about what to fix.
func (w *CompatibleWrapper) improveErrorMessage(err error) error {
	errStr := err.Error()
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "context deadline exceeded") || strings.Contains(lower, "client.timeout"):
		w.log(fmt.Sprintf("Model request timed out: %v", err))
		return fmt.Errorf("the model endpoint did not respond in time; increase timeoutSeconds or try again")
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		w.log(fmt.Sprintf("Model endpoint unreachable at %s: %v", w.baseURL, err))
		return fmt.Errorf("cannot reach the model endpoint at %s; check baseUrl and network access", w.baseURL)
	case strings.Contains(errStr, "status code: 401") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "incorrect api key"):
		w.log(fmt.Sprintf("Model request rejected (auth): %v", err))
		return fmt.Errorf("the model endpoint rejected the API key; check apiKey in the configuration")
	case strings.Contains(errStr, "status code: 404"):
		w.log(fmt.Sprintf("Model not found: %v", err))
		return fmt.Errorf("the endpoint does not recognize the configured model; check modelName")
	case strings.Contains(errStr, "status code: 429") || strings.Contains(lower, "rate limit"):
		w.log(fmt.Sprintf("Model request rate limited: %v", err))
		return fmt.Errorf("the model endpoint is rate limiting requests; wait a moment and retry")
	case strings.Contains(errStr, "status code: 5") || strings.Contains(lower, "overloaded") || strings.Contains(lower, "unavailable"):
		w.log(fmt.Sprintf("Model endpoint unavailable: %v", err))
		return fmt.Errorf("the model endpoint is temporarily overloaded; try again in a few moments")
	default:
		return err
	}
}
