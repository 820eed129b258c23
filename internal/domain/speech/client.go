package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	mp3 "github.com/hajimehoshi/go-mp3"

	"visionlex-server-go/internal/platform/config"
	"visionlex-server-go/internal/platform/errors"
	"visionlex-server-go/internal/platform/logging"
)

const synthUserID = "visionlex_user"

// Client calls the speech endpoint and turns the base64 payload into a
// registered audio handle.
type Client struct {
	cfg        config.TTSConfig
	httpClient *http.Client
	registry   *Registry
	logger     *logging.Logger
}

func NewClient(cfg config.TTSConfig, registry *Registry, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		registry:   registry,
		logger:     logger,
	}
}

// Configured reports whether all four credentials are present. A partial set
// disables synthesis for the whole session.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

type synthApp struct {
	AppID   string `json:"appid"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
}

type synthUser struct {
	UID string `json:"uid"`
}

type synthAudio struct {
	VoiceType       string  `json:"voice_type"`
	Encoding        string  `json:"encoding"`
	CompressionRate int     `json:"compression_rate"`
	Rate            int     `json:"rate"`
	SpeedRatio      float64 `json:"speed_ratio"`
	VolumeRatio     float64 `json:"volume_ratio"`
	PitchRatio      float64 `json:"pitch_ratio"`
	Emotion         string  `json:"emotion"`
}

type synthRequest struct {
	ReqID           string `json:"reqid"`
	Text            string `json:"text"`
	TextType        string `json:"text_type"`
	Operation       string `json:"operation"`
	SilenceDuration string `json:"silence_duration"`
	WithFrontend    string `json:"with_frontend"`
	FrontendType    string `json:"frontend_type"`
	PureEnglishOpt  string `json:"pure_english_opt"`
}

type synthPayload struct {
	App     synthApp     `json:"app"`
	User    synthUser    `json:"user"`
	Audio   synthAudio   `json:"audio"`
	Request synthRequest `json:"request"`
}

type synthResponse struct {
	Data    string `json:"data"`
	Message string `json:"message"`
}

// Synthesize issues one synthesis request. The caller owns the returned
// handle and must release it exactly once when superseded.
func (c *Client) Synthesize(ctx context.Context, text string) (*Handle, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.KindEmptyInput, "speech.synthesize", "text must not be empty")
	}
	if !c.cfg.Configured() {
		return nil, errors.New(errors.KindConfig, "speech.synthesize",
			"speech credentials incomplete")
	}

	payload := synthPayload{
		App: synthApp{
			AppID:   c.cfg.AppID,
			Token:   c.cfg.Token,
			Cluster: c.cfg.Cluster,
		},
		User: synthUser{UID: synthUserID},
		Audio: synthAudio{
			VoiceType:       c.cfg.Voice,
			Encoding:        "ogg_opus",
			CompressionRate: 1,
			Rate:            24000,
			SpeedRatio:      1.0,
			VolumeRatio:     1.0,
			PitchRatio:      1.0,
			Emotion:         "happy",
		},
		Request: synthRequest{
			ReqID:           uuid.NewString(),
			Text:            text,
			TextType:        "plain",
			Operation:       "query",
			SilenceDuration: "125",
			WithFrontend:    "1",
			FrontendType:    "unitTson",
			PureEnglishOpt:  "1",
		},
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "speech.synthesize", "marshal payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, "speech.synthesize", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer;"+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.KindAPI, "speech.synthesize", "read response", err)
	}

	var parsed synthResponse
	if err := sonic.Unmarshal(raw, &parsed); err != nil && resp.StatusCode < 300 {
		return nil, errors.Wrap(errors.KindMalformedResponse, "speech.synthesize",
			"response is not valid JSON", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(errors.KindAPI, "speech.synthesize", parsed.Message)
	}

	if parsed.Data == "" {
		c.logger.WarnTag("TTS", "synthesis response without audio payload: %s", truncate(raw, 256))
		return nil, errors.New(errors.KindMalformedResponse, "speech.synthesize",
			"response carries no audio data")
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.Data)
	if err != nil {
		return nil, errors.Wrap(errors.KindDecode, "speech.synthesize", "decode audio payload", err)
	}

	c.probeDuration(audio)

	// The blob is tagged MP3-compatible regardless of the requested container,
	// matching what the browser's audio element expects.
	return c.registry.Register(audio, "audio/mp3"), nil
}

func (c *Client) classifyTransportError(ctx context.Context, err error) error {
	switch {
	case stderrors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		return errors.Wrap(errors.KindCancelled, "speech.synthesize", "request aborted", err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.KindTimeout, "speech.synthesize", "request deadline exceeded", err)
	}
	return errors.Wrap(errors.KindAPI, "speech.synthesize", "", err)
}

// probeDuration tries to read the payload as MP3 for log diagnostics only.
// Opus-in-ogg payloads simply fail the probe, which is fine.
func (c *Client) probeDuration(audio []byte) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		c.logger.DebugTag("TTS", "audio payload is not mp3-probeable: %v", err)
		return
	}
	seconds := float64(decoder.Length()) / float64(decoder.SampleRate()*4)
	c.logger.DebugTag("TTS", "synthesized %d bytes (~%.1fs at %dHz)",
		len(audio), seconds, decoder.SampleRate())
}

func truncate(raw []byte, limit int) string {
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
