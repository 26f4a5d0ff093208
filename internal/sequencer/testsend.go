package sequencer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"outreach/internal/types"
)

// TestRequest asks for one message of a chosen variant to be sent to an
// operator address. It never reads or writes sequences.
type TestRequest struct {
	Email   string        `json:"testEmail" validate:"required,email"`
	City    string        `json:"testCity" validate:"required"`
	Region  string        `json:"testRegion" validate:"required,alpha,min=2,max=3"`
	Variant types.Variant `json:"testVariant" validate:"required,oneof=A B"`
	// Stage defaults to day1.
	Stage types.Stage `json:"testStage,omitempty" validate:"omitempty,oneof=day1 day3 day7"`
}

var validate = validator.New()

// testFieldCodes maps a failing field to the most specific error code.
var testFieldCodes = map[string]types.ErrorCode{
	"Email":   types.ErrCodeValidationInvalidEmail,
	"Region":  types.ErrCodeValidationInvalidRegion,
	"Variant": types.ErrCodeValidationVariant,
	"Stage":   types.ErrCodeValidationStage,
}

// Validate returns a validation AppError describing the first bad field.
func (r TestRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewAppError(types.ErrCodeValidationPayload, "invalid test request", err)
	}
	first := verrs[0]

	code, ok := testFieldCodes[first.Field()]
	if !ok || first.Tag() == "required" {
		code = types.ErrCodeValidationMissingField
	}
	return types.NewAppErrorWithDetails(code,
		fmt.Sprintf("invalid %s: failed %q", first.Field(), first.Tag()),
		err,
		map[string]any{"field": first.Field()},
	)
}

// SendTest validates req and dispatches exactly one message built from live
// city data, returning the provider's result directly.
func (e *Engine) SendTest(ctx context.Context, req TestRequest, now time.Time) (DispatchResult, error) {
	if err := req.Validate(); err != nil {
		return DispatchResult{}, err
	}
	stage := req.Stage
	if stage == "" {
		stage = types.StageDay1
	}
	now = now.UTC()

	cityEvents, err := e.events.ListRecentInCity(ctx, e.cityQuery(req.City, req.Region, now))
	if err != nil {
		return DispatchResult{}, fmt.Errorf("loading city events: %w", err)
	}

	listing := types.EventSnapshot{
		Address: "123 Sample Street",
		City:    req.City,
		Region:  strings.ToUpper(req.Region),
	}
	var others []types.Event
	if len(cityEvents) > 0 {
		listing = types.SnapshotOf(cityEvents[0])
		others = cityEvents[1:]
	}

	msg := Message{
		Stage:   stage,
		Variant: req.Variant,
		Contact: types.Contact{
			ID:               "test",
			OrganizationName: "Test Recipient",
			Email:            req.Email,
			City:             req.City,
			Region:           strings.ToUpper(req.Region),
			Status:           types.ContactStatusActive,
			AuthToken:        "test",
		},
		Listing:        listing,
		CityEvents:     others,
		CityEventCount: len(cityEvents),
	}

	e.logger.InfoContext(ctx, "sending test message", "stage", stage, "variant", req.Variant, "city", req.City)
	return e.dispatcher.Dispatch(ctx, msg)
}
