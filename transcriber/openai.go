package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"murmur/config"
	"murmur/encoder"
)

const openAIURL = "https://api.openai.com/v1/audio/transcriptions"

// OpenAI sends one multipart upload per utterance to the transcription
// endpoint. The audio container (wav or flac) is chosen at config time.
type OpenAI struct {
	client   *TracedClient
	apiURL   string
	apiKey   string
	model    string
	language string
	format   string
	encode   encoder.Func
}

func NewOpenAI(cfg config.EngineConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai engine needs an API key (set OPENAI_API_KEY)")
	}
	encode, err := encoder.ForFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return &OpenAI{
		client:   NewTracedClient(),
		apiURL:   openAIURL,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		language: cfg.Language,
		format:   cfg.Format,
		encode:   encode,
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Warm pre-opens the TLS connection so the first utterance does not pay
// the handshake on top of the upload.
func (o *OpenAI) Warm() {
	go o.client.Warm(o.apiURL)
}

func (o *OpenAI) Transcribe(ctx context.Context, req Request) (Result, error) {
	audio, err := o.encode(req.Samples, req.SampleRate)
	if err != nil {
		return Result{}, &Error{Kind: KindMalformedOutput, Engine: o.Name(), Msg: "encoding upload", Err: err}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio."+o.format)
	if err != nil {
		return Result{}, &Error{Kind: KindNetwork, Engine: o.Name(), Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, &Error{Kind: KindNetwork, Engine: o.Name(), Err: err}
	}
	writer.WriteField("model", o.modelFor(req))
	writer.WriteField("response_format", "json")
	if lang := o.languageFor(req); lang != "" {
		writer.WriteField("language", lang)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, &body)
	if err != nil {
		return Result{}, &Error{Kind: KindNetwork, Engine: o.Name(), Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctxErr := fromContext(ctx, o.Name(), err); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, &Error{Kind: KindNetwork, Engine: o.Name(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, o.statusError(resp)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return Result{}, &Error{Kind: KindMalformedOutput, Engine: o.Name(), Msg: snippet(resp.Body), Err: err}
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return Result{
		Text:      strings.TrimSpace(parsed.Text),
		Metrics:   resp.Metrics,
		RateLimit: remaining + "/" + limit,
	}, nil
}

func (o *OpenAI) statusError(resp *TracedResponse) *Error {
	kind := KindServiceError
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindUnauthorized
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	}
	return &Error{Kind: kind, Engine: o.Name(), Status: resp.StatusCode, Msg: snippet(resp.Body)}
}

func (o *OpenAI) modelFor(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return o.model
}

func (o *OpenAI) languageFor(req Request) string {
	if req.Language != "" {
		return req.Language
	}
	return o.language
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
