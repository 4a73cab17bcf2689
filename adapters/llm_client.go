package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/FrenchMajesty/product-classifier/clients/openai"
	"github.com/FrenchMajesty/product-classifier/index"
)

const (
	// DefaultRerankModel is a small, cheap model; the rerank prompt is
	// short and the answer is a single JSON object.
	DefaultRerankModel     = "gpt-4o-mini"
	defaultRerankMaxTokens = 128
)

// ChatClient is the slice of the chat API the reranker needs.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// LLMReranker asks a chat model to pick the best category among retrieval
// candidates. Unparseable or out-of-set answers decline (return 0) rather
// than erroring: the model refining a choice must never lose one.
type LLMReranker struct {
	Chat  ChatClient
	Model string

	// MaxTokens bounds the completion. Zero means defaultRerankMaxTokens.
	MaxTokens int
}

// NewLLMReranker builds a reranker over an OpenAI-compatible endpoint.
func NewLLMReranker(chat ChatClient, model string) *LLMReranker {
	if model == "" {
		model = DefaultRerankModel
	}
	return &LLMReranker{Chat: chat, Model: model}
}

// LLMRerankerFromEnv builds a reranker from OPENAI_API_KEY, optionally
// honoring OPENAI_BASE_URL for compatible self-hosted endpoints.
func LLMRerankerFromEnv(model string) (*LLMReranker, error) {
	key, err := loadEnvVar("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	return NewLLMReranker(openai.NewClient(key, strings.TrimSpace(envOr("OPENAI_BASE_URL", ""))), model), nil
}

const rerankSystemPrompt = "You are a product taxonomy expert. Given a product and a list of " +
	"candidate categories, choose the single best category. Respond with only a JSON object " +
	"of the form {\"selected_type_id\": <id>}. If none of the candidates fit, respond with " +
	"{\"selected_type_id\": 0}."

// Rerank implements the classifier's Reranker interface.
func (r *LLMReranker) Rerank(ctx context.Context, productText string, candidates []index.Match) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	prompt := buildRerankPrompt(productText, candidates)
	system := rerankSystemPrompt
	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultRerankMaxTokens
	}

	resp, err := r.Chat.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.Model,
		Messages: []openai.ChatMessage{
			{Role: openai.MessageRoleSystem, Content: &system},
			{Role: openai.MessageRoleUser, Content: &prompt},
		},
		MaxCompletionTokens: maxTokens,
		ResponseFormat:      &openai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return 0, nil
	}

	selected, ok := extractSelection(*resp.Choices[0].Message.Content)
	if !ok {
		return 0, nil
	}
	for _, c := range candidates {
		if c.NodeID == selected {
			return selected, nil
		}
	}
	// Model invented an id. Decline instead of propagating it.
	return 0, nil
}

func buildRerankPrompt(productText string, candidates []index.Match) string {
	var b strings.Builder
	b.WriteString("Product:\n")
	b.WriteString(productText)
	b.WriteString("\n\nCandidate categories:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id %d: %s (similarity %.3f)\n", c.NodeID, c.Label, c.Score)
	}
	b.WriteString("\nWhich candidate fits best?")
	return b.String()
}

// extractSelection pulls selected_type_id out of the model's reply. Models
// occasionally wrap the JSON in prose or emit several objects while
// reasoning, so it scans for the last object that carries the field.
func extractSelection(raw string) (int, bool) {
	for start := strings.LastIndex(raw, "{"); start >= 0; start = strings.LastIndex(raw[:start], "{") {
		end := strings.Index(raw[start:], "}")
		if end < 0 {
			continue
		}
		obj := raw[start : start+end+1]
		if v := gjson.Get(obj, "selected_type_id"); v.Exists() && v.Type == gjson.Number {
			return int(v.Int()), true
		}
	}
	return 0, false
}

func envOr(name, fallback string) string {
	if v, err := loadEnvVar(name); err == nil {
		return v
	}
	return fallback
}
