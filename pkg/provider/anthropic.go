package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

const anthropicVersion = "2023-06-01"

// defaultMaxTokens applies when a request leaves MaxTokens unset; the
// Anthropic messages API requires the field.
const defaultMaxTokens = 1024

// anthropicAdapter speaks the Anthropic /v1/messages protocol, where the
// system prompt is a top-level field rather than a message role.
type anthropicAdapter struct {
	base base
}

func (a *anthropicAdapter) Name() string { return a.base.name }

func (a *anthropicAdapter) IsReasoning(model string) bool { return a.base.isReasoning(model) }

func (a *anthropicAdapter) Complete(ctx context.Context, req Request) (Completion, error) {
	payload := models.AnthropicRequest{
		Model:     req.Model,
		MaxTokens: req.Params.MaxTokens,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = defaultMaxTokens
	}
	if a.IsReasoning(req.Model) {
		payload.Messages = []models.ChatMessage{
			{Role: "user", Content: mergePrompts(req.System, req.User)},
		}
	} else {
		payload.System = req.System
		payload.Messages = []models.ChatMessage{{Role: "user", Content: req.User}}
	}
	if req.Params.Temperature > 0 {
		t := req.Params.Temperature
		payload.Temperature = &t
	}

	headers := map[string]string{
		"x-api-key":         a.base.apiKey,
		"anthropic-version": anthropicVersion,
	}
	body, err := a.base.post(ctx, "/messages", headers, payload)
	if err != nil {
		return Completion{}, err
	}

	var resp models.AnthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Completion{}, &Error{Kind: KindMalformed, Provider: a.base.name, Err: err}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Completion{}, &Error{Kind: KindMalformed, Provider: a.base.name, Message: "empty completion"}
	}

	actual := resp.Model
	if actual == "" {
		actual = req.Model
	}
	return Completion{Text: text.String(), Model: actual}, nil
}
