package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/logger"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Anthropic calls the Messages API.
type Anthropic struct {
	cfg     Config
	client  *resty.Client
	retrier *apperrors.Retrier
	log     *logger.Logger
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type anthropicResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropic creates an Anthropic client with the given API key.
func NewAnthropic(cfg Config, apiKey string, log *logger.Logger) *Anthropic {
	log = logger.OrNop(log).WithComponent("llm").WithField("provider", ProviderAnthropic)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json")

	return &Anthropic{
		cfg:     cfg,
		client:  client,
		retrier: retrierFor(cfg, log),
		log:     log,
	}
}

// Complete sends req and returns the concatenated text blocks of the reply.
func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	req = a.cfg.fill(req)

	body := anthropicRequest{
		Model:       req.Model,
		System:      req.System,
		Messages:    append(append([]Message(nil), req.History...), Message{Role: "user", Content: req.Prompt}),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, result := apperrors.DoWithResult(ctx, a.retrier, "complete", req.Model,
		func(ctx context.Context) (Response, error) {
			return a.send(ctx, body)
		})
	if !result.Success {
		return Response{}, result.LastError
	}
	return resp, nil
}

func (a *Anthropic) send(ctx context.Context, body anthropicRequest) (Response, error) {
	httpResp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/messages")
	if err != nil {
		return Response{}, apperrors.Categorize(err, body.Model)
	}
	if err := statusError(httpResp, body.Model); err != nil {
		return Response{}, err
	}

	var out anthropicResponse
	if err := json.Unmarshal(httpResp.Body(), &out); err != nil {
		return Response{}, apperrors.NewResponseError(body.Model, "invalid messages response", err)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return Response{
		Text:         text.String(),
		Model:        out.Model,
		StopReason:   out.StopReason,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}, nil
}

// statusError maps a non-2xx response to a typed error carrying the
// provider's message.
func statusError(resp *resty.Response, target string) error {
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}

	err := apperrors.CategorizeHTTPStatus(code, target)
	if err == nil {
		return apperrors.NewResponseError(target, "unexpected status "+strconv.Itoa(code), nil)
	}

	var apiErr apiErrorBody
	if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
		err.Message = err.Message + ": " + apiErr.Error.Message
	}
	if code == 429 {
		if secs, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil && secs > 0 {
			hinted := apperrors.NewRateLimitError(target, secs)
			err.Message, err.RetryAfter = hinted.Message, hinted.RetryAfter
		}
	}
	return err
}
