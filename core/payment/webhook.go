package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
)

const (
	// HashHeader carries the secret the payment gateway echoes back on every webhook call.
	HashHeader = "verif-hash"

	EventChargeCompleted = "charge.completed"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMalformed    = errors.New("malformed webhook payload")
)

// Event is a webhook notification sent by the payment gateway.
type Event struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// PlanActivator activates the plan paid for by a completed charge.
type PlanActivator interface {
	ActivatePlan(ctx context.Context, evt Event) error
}

type loggingActivator struct {
	logger core.Logger
}

// NewLoggingActivator returns a PlanActivator that only records completed charges.
func NewLoggingActivator(logger core.Logger) PlanActivator {
	return &loggingActivator{logger: logger}
}

func (a *loggingActivator) ActivatePlan(_ context.Context, evt Event) error {
	a.logger.Info("payment completed", evt.Data)
	return nil
}

type Webhook struct {
	secret    string
	activator PlanActivator
	logger    core.Logger
}

func NewWebhook(conf *core.Config, activator PlanActivator, logger core.Logger) *Webhook {
	return &Webhook{secret: conf.Payment.WebhookHash, activator: activator, logger: logger}
}

// Verify reports whether hash matches the configured secret. It always fails when no secret is set.
func (wh *Webhook) Verify(hash string) error {
	if wh.secret == "" || hash == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(wh.secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// Handle verifies hash, decodes body and dispatches the event.
// Events other than charge.completed are acknowledged and ignored.
func (wh *Webhook) Handle(ctx context.Context, hash string, body []byte) (Event, error) {
	if err := wh.Verify(hash); err != nil {
		return Event{}, err
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return Event{}, errors.Wrap(ErrMalformed, err.Error())
	}

	switch evt.Event {
	case EventChargeCompleted:
		if err := wh.activator.ActivatePlan(ctx, evt); err != nil {
			return evt, errors.Wrap(err, "activating plan")
		}
	default:
		wh.logger.Debug("ignoring payment event", map[string]interface{}{"event": evt.Event})
	}
	return evt, nil
}
