package external

import (
	"context"

	"outreach/internal/types"
)

// EmailProvider transmits pre-rendered email content.
type EmailProvider interface {
	// Send returns the provider's message id. A recipient the provider
	// refuses is reported as an AppError with ErrCodeEmailBlocked.
	Send(ctx context.Context, input types.SendInput) (providerMsgID string, err error)
}
