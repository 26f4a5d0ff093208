package external

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"outreach/internal/types"
)

// StubEmailProvider logs instead of sending. Recipients are not logged.
type StubEmailProvider struct {
	logger *slog.Logger
	sent   atomic.Int64
}

func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	n := s.sent.Add(1)
	s.logger.InfoContext(ctx, "stub: email not sent",
		"subject", input.Subject,
		"tags", input.Tags,
		"html_bytes", len(input.BodyHTML),
		"text_bytes", len(input.BodyText),
	)
	return fmt.Sprintf("stub-%d", n), nil
}

// Sent reports how many messages the stub accepted.
func (s *StubEmailProvider) Sent() int64 {
	return s.sent.Load()
}

var _ EmailProvider = (*StubEmailProvider)(nil)
