package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-resty/resty/v2"

	apperrors "github.com/PentesterFlow/jalapi/internal/errors"
	"github.com/PentesterFlow/jalapi/internal/logger"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAI calls the Chat Completions API in JSON mode.
type OpenAI struct {
	cfg     Config
	client  *resty.Client
	retrier *apperrors.Retrier
	log     *logger.Logger
}

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	MaxTokens      int               `json:"max_tokens"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewOpenAI creates an OpenAI-compatible client with the given API key.
func NewOpenAI(cfg Config, apiKey string, log *logger.Logger) *OpenAI {
	log = logger.OrNop(log).WithComponent("llm").WithField("provider", ProviderOpenAI)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &OpenAI{
		cfg:     cfg,
		client:  client,
		retrier: retrierFor(cfg, log),
		log:     log,
	}
}

// Complete sends req and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	req = o.cfg.fill(req)

	var messages []Message
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	body := openAIRequest{
		Model:          req.Model,
		Messages:       messages,
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	resp, result := apperrors.DoWithResult(ctx, o.retrier, "complete", req.Model,
		func(ctx context.Context) (Response, error) {
			return o.send(ctx, body)
		})
	if !result.Success {
		return Response{}, result.LastError
	}
	return resp, nil
}

func (o *OpenAI) send(ctx context.Context, body openAIRequest) (Response, error) {
	httpResp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/chat/completions")
	if err != nil {
		return Response{}, apperrors.Categorize(err, body.Model)
	}
	if err := statusError(httpResp, body.Model); err != nil {
		return Response{}, err
	}

	var out openAIResponse
	if err := json.Unmarshal(httpResp.Body(), &out); err != nil {
		return Response{}, apperrors.NewResponseError(body.Model, "invalid chat completion response", err)
	}
	if len(out.Choices) == 0 {
		return Response{}, apperrors.NewResponseError(body.Model, "chat completion has no choices", nil)
	}

	return Response{
		Text:         out.Choices[0].Message.Content,
		Model:        out.Model,
		StopReason:   out.Choices[0].FinishReason,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}
