package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/config"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"google.golang.org/genai"
)

const systemPrompt = `You tune the operating instructions of autonomous workers in a task fleet.
Given one worker's current behavior text, capability tags, efficiency (0-100) and recent
task outcomes, propose an improved behavior text. Respond with a single JSON object:
{"behavior": string, "capabilities_added": [string], "capabilities_removed": [string],
 "expected_gain": number (efficiency points, 0-10), "confidence": number (0-1),
 "rationale": string, "weaknesses": [string], "improvements": [string]}`

var ErrEmptyBehavior = errors.New("reasoning response has no behavior text")

// GeminiService asks a Gemini model for behavior improvements.
type GeminiService struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

func NewGeminiService(ctx context.Context, cfg config.ReasoningConfig, log *logger.Logger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiService{client: client, model: model, timeout: cfg.Timeout, log: log}, nil
}

var _ ports.ReasoningService = (*GeminiService)(nil)

func (s *GeminiService) ProposeEvolution(ctx context.Context, req ports.ReasoningRequest) (*ports.ReasoningResponse, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.4),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	out, err := ParseResponse(resp.Text())
	if err != nil {
		s.log.Warnw("reasoning_parse_failed", "worker", req.WorkerName, "error", err)
		return nil, err
	}
	s.log.Infow("reasoning_proposal_ok",
		"worker", req.WorkerName,
		"model", s.model,
		"expected_gain", out.ExpectedGain,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return out, nil
}

// BuildPrompt renders the worker context as the user turn.
func BuildPrompt(req ports.ReasoningRequest) (string, error) {
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode reasoning request: %w", err)
	}
	var b strings.Builder
	b.WriteString("Worker context:\n")
	b.Write(payload)
	if req.Peers != nil {
		fmt.Fprintf(&b, "\n\nPeers in role %q average %.1f efficiency; top performer is %s.",
			req.Peers.Role, req.Peers.AverageEfficiency, req.Peers.TopPerformer)
	}
	b.WriteString("\n\nReturn only the JSON object.")
	return b.String(), nil
}

// ParseResponse extracts the JSON object from raw model output, tolerating
// markdown fences and surrounding prose.
func ParseResponse(raw string) (*ports.ReasoningResponse, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in reasoning response")
	}

	var out ports.ReasoningResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode reasoning response: %w", err)
	}
	out.Behavior = strings.TrimSpace(out.Behavior)
	if out.Behavior == "" {
		return nil, ErrEmptyBehavior
	}
	return &out, nil
}
