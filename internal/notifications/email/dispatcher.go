package email

import (
	"context"
	"log/slog"

	"outreach/internal/external"
	"outreach/internal/sequencer"
	"outreach/internal/types"
)

// Dispatcher renders sequencer messages and sends them through an
// EmailProvider.
type Dispatcher struct {
	renderer *Renderer
	provider external.EmailProvider
	from     types.SenderIdentity
	logger   *slog.Logger
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Renderer *Renderer
	Provider external.EmailProvider
	From     types.SenderIdentity
	Logger   *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		renderer: cfg.Renderer,
		provider: cfg.Provider,
		from:     cfg.From,
		logger:   logger,
	}
}

// Dispatch implements sequencer.Dispatcher. A recipient the provider refuses
// yields Success=false and a nil error; any other failure is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msg sequencer.Message) (sequencer.DispatchResult, error) {
	rendered, err := d.renderer.Render(msg)
	if err != nil {
		return sequencer.DispatchResult{}, err
	}

	tags := map[string]string{
		"stage":   string(msg.Stage),
		"variant": string(msg.Variant),
	}
	if msg.Contact.ID != "" {
		tags["contact"] = msg.Contact.ID
	}
	if msg.SequenceID != "" {
		tags["sequence"] = msg.SequenceID
	}

	id, err := d.provider.Send(ctx, types.SendInput{
		To:       msg.Contact.Email,
		From:     d.from,
		Subject:  rendered.Subject,
		BodyHTML: rendered.BodyHTML,
		BodyText: rendered.BodyText,
		Tags:     tags,
	})
	if err != nil {
		if IsBlocklistError(err) {
			d.logger.WarnContext(ctx, "recipient refused by provider",
				"to", RedactEmail(msg.Contact.Email),
				"stage", msg.Stage,
				"error", err,
			)
			return sequencer.DispatchResult{Success: false}, nil
		}
		return sequencer.DispatchResult{}, err
	}

	d.logger.DebugContext(ctx, "message sent",
		"to", RedactEmail(msg.Contact.Email),
		"stage", msg.Stage,
		"variant", msg.Variant,
		"provider_message_id", id,
	)
	return sequencer.DispatchResult{Success: true, ProviderMessageID: id}, nil
}

var _ sequencer.Dispatcher = (*Dispatcher)(nil)
