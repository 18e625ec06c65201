// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements Provider on top of the Google GenAI SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

var (
	_ Provider = (*GeminiProvider)(nil)
	_ Embedder = (*GeminiProvider)(nil)
)

// GeminiOption configures a GeminiProvider.
type GeminiOption func(*geminiConfig)

type geminiConfig struct {
	apiKey  string
	model   string
	baseURL string
}

// WithGeminiAPIKey sets the API key. If not provided, the provider reads
// GEMINI_API_KEY, then GOOGLE_API_KEY.
func WithGeminiAPIKey(key string) GeminiOption {
	return func(c *geminiConfig) { c.apiKey = key }
}

// WithGeminiModel overrides the default model. An empty model keeps the
// default.
func WithGeminiModel(model string) GeminiOption {
	return func(c *geminiConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithGeminiBaseURL points the client at a different API endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(c *geminiConfig) { c.baseURL = url }
}

// NewGeminiProvider creates a Gemini provider backed by the Gemini API.
func NewGeminiProvider(ctx context.Context, opts ...GeminiOption) (*GeminiProvider, error) {
	cfg := geminiConfig{model: defaultGeminiModel}
	for _, o := range opts {
		o(&cfg)
	}

	apiKey := cfg.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("llm: GEMINI_API_KEY not set and no API key provided")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, model: cfg.model}, nil
}

// Complete sends a single-turn generateContent request.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens), //nolint:gosec // bounded by catalog values
	}
	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, fmt.Errorf("gemini: completion failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini: %w: prompt blocked (%s) %s",
			ErrContentFiltered, resp.PromptFeedback.BlockReason, resp.PromptFeedback.BlockReasonMessage)
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("gemini: response has no candidates")
	}

	finish := resp.Candidates[0].FinishReason
	switch finish {
	case genai.FinishReasonMaxTokens:
		return nil, fmt.Errorf("gemini: %w (max_tokens=%d, model=%s)", ErrOutputBudgetExceeded, maxTokens, model)
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist, genai.FinishReasonSPII:
		return nil, fmt.Errorf("gemini: %w: finish reason %s", ErrContentFiltered, finish)
	}

	out := &Response{
		Content:    resp.Text(),
		Model:      model,
		StopReason: string(finish),
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	return out, nil
}

// Embed embeds every text in one request. An empty model uses the
// provider's default.
func (p *GeminiProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if model == "" {
		model = p.model
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	resp, err := p.client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: embed returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Model returns the default model configured for this provider.
func (p *GeminiProvider) Model() string {
	return p.model
}
