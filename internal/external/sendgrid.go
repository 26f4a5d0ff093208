package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"outreach/internal/types"
)

const sendGridAPIBase = "https://api.sendgrid.com"

type SendGridClientConfig struct {
	APIKey types.SecretString
	// BaseURL overrides the API host; tests point it at httptest.
	BaseURL string
	Logger  *slog.Logger
}

// SendGridClient calls the v3 Mail Send API with inline content through a
// BaseClient.
type SendGridClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

func NewSendGridClient(httpClient *http.Client, cfg SendGridClientConfig, opts ...BaseClientOption) *SendGridClient {
	return NewSendGridClientWithBase(
		NewBaseClient(httpClient, "sendgrid", DefaultRetryPolicy(), "outreach-sequencer/1.0", opts...),
		cfg,
	)
}

func NewSendGridClientWithBase(base *BaseClient, cfg SendGridClientConfig) *SendGridClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sendGridAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	CustomArgs       map[string]string   `json:"custom_args,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// mailBody orders text/plain before text/html as the API requires.
func mailBody(in types.SendInput) sgMail {
	m := sgMail{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: in.To}}}},
		From:             sgAddress{Email: in.From.Address, Name: in.From.Name},
		Subject:          in.Subject,
		CustomArgs:       in.Tags,
	}
	if in.BodyText != "" {
		m.Content = append(m.Content, sgContent{Type: "text/plain", Value: in.BodyText})
	}
	if in.BodyHTML != "" {
		m.Content = append(m.Content, sgContent{Type: "text/html", Value: in.BodyHTML})
	}
	return m
}

// Send returns the X-Message-Id of an accepted message.
func (s *SendGridClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	payload, err := json.Marshal(mailBody(input))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "encoding SendGrid payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "building SendGrid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey.Unmask())

	resp, err := s.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return resp.Header.Get("X-Message-Id"), nil
	}
	return "", sendGridError(resp)
}

type sgErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// sendGridError maps a non-2xx response. 403 means the recipient or sender
// is blocked; everything else is a provider error.
func sendGridError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))
	var body sgErrorBody
	if json.Unmarshal(raw, &body) == nil && len(body.Errors) > 0 {
		msg = body.Errors[0].Message
	}

	if resp.StatusCode == http.StatusForbidden {
		return types.NewAppError(types.ErrCodeEmailBlocked, "SendGrid blocked delivery: "+msg, nil)
	}
	return types.NewAppError(types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("SendGrid returned %d: %s", resp.StatusCode, msg), nil)
}

var _ EmailProvider = (*SendGridClient)(nil)
