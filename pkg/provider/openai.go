package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// openaiAdapter speaks the OpenAI-compatible chat completions protocol used
// by routing gateways such as Martian and OpenRouter.
type openaiAdapter struct {
	base base
}

func (a *openaiAdapter) Name() string { return a.base.name }

func (a *openaiAdapter) IsReasoning(model string) bool { return a.base.isReasoning(model) }

func (a *openaiAdapter) Complete(ctx context.Context, req Request) (Completion, error) {
	var messages []models.ChatMessage
	if a.IsReasoning(req.Model) {
		messages = []models.ChatMessage{
			{Role: "user", Content: mergePrompts(req.System, req.User)},
		}
	} else {
		messages = []models.ChatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		}
	}

	payload := models.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Params.Temperature > 0 {
		t := req.Params.Temperature
		payload.Temperature = &t
	}
	if req.Params.MaxTokens > 0 {
		n := req.Params.MaxTokens
		payload.MaxTokens = &n
	}

	headers := map[string]string{"Authorization": "Bearer " + a.base.apiKey}
	body, err := a.base.post(ctx, "/chat/completions", headers, payload)
	if err != nil {
		return Completion{}, err
	}

	var resp models.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Completion{}, &Error{Kind: KindMalformed, Provider: a.base.name, Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Completion{}, &Error{Kind: KindMalformed, Provider: a.base.name, Message: "empty completion"}
	}

	actual := resp.Model
	if actual == "" {
		actual = req.Model
	}
	return Completion{Text: resp.Choices[0].Message.Content, Model: actual}, nil
}
