// Package email renders outreach messages and hands them to an
// EmailProvider. It is the production sequencer.Dispatcher.
package email

import (
	"errors"

	"outreach/internal/types"
)

// ErrRecipientBlocked marks a recipient the provider refuses to deliver to.
var ErrRecipientBlocked = errors.New("recipient blocked by provider")

// IsBlocklistError reports whether err is a suppression or rejection of the
// recipient rather than a transport failure.
func IsBlocklistError(err error) bool {
	if errors.Is(err, ErrRecipientBlocked) {
		return true
	}
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Code == types.ErrCodeEmailBlocked
}
