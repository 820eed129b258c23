package vision

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"

	"visionlex-server-go/internal/platform/config"
	"visionlex-server-go/internal/platform/errors"
	"visionlex-server-go/internal/platform/logging"
)

// Client calls the vision-language endpoint and validates the model output
// into an AnalysisResult. One request per call; the caller owns cancellation.
type Client struct {
	cfg    config.VisionConfig
	logger *logging.Logger
	api    *openai.Client
}

func NewClient(cfg config.VisionConfig, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	client := &Client{
		cfg:    cfg,
		logger: logger,
	}
	if cfg.Configured() {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		client.api = openai.NewClientWithConfig(clientConfig)
	}
	return client
}

// Configured reports whether an API key is present. When false, Analyze
// fails fast with a config error and never touches the network.
func (c *Client) Configured() bool {
	return c.api != nil
}

// Analyze sends the image and the fixed prompt, enforcing the configured
// timeout. Cancelling ctx yields a cancelled error, distinct from timeout.
func (c *Client) Analyze(ctx context.Context, imageDataURI string) (*AnalysisResult, error) {
	if c.api == nil {
		return nil, errors.New(errors.KindConfig, "vision.analyze", "inference API key not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageDataURI,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: analysisPrompt,
					},
				},
			},
		},
		Stream: false,
	}

	resp, err := c.api.CreateChatCompletion(reqCtx, req)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New(errors.KindMalformedResponse, "vision.analyze",
			"response carries no message payload")
	}

	return c.parsePayload(resp.Choices[0].Message.Content)
}

func (c *Client) classifyTransportError(ctx context.Context, err error) error {
	switch {
	case stderrors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return errors.Wrap(errors.KindCancelled, "vision.analyze", "request aborted", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.KindTimeout, "vision.analyze", "request deadline exceeded", err)
	}

	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return errors.Wrap(errors.KindAPI, "vision.analyze", apiErr.Message, err)
	}
	return errors.Wrap(errors.KindAPI, "vision.analyze", "", err)
}

func (c *Client) parsePayload(content string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := sonic.Unmarshal([]byte(content), &result); err != nil {
		// Diagnostic only; the raw model text never reaches the client.
		c.logger.WarnTag("VISION", "unparsable model output: %s", content)
		return nil, errors.Wrap(errors.KindParse, "vision.parse", "model output is not valid JSON", err)
	}

	if strings.TrimSpace(result.RepresentativeWord) == "" {
		return nil, errors.New(errors.KindMalformedResponse, "vision.parse",
			"payload is missing representative_word")
	}

	result.ExplanationLines = splitExplanation(result.Explanation)
	return &result, nil
}

// splitExplanation breaks the multi-line explanation into display lines,
// dropping blanks.
func splitExplanation(explanation string) []string {
	if explanation == "" {
		return nil
	}
	lines := make([]string, 0, 4)
	for _, line := range strings.Split(explanation, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
