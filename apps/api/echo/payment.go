package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core/payment"
)

const maxWebhookBody = 1 << 20

type paymentApi struct {
	webhook *payment.Webhook
	metrics *Metrics
}

func registerPaymentAPI(g *echo.Group, webhook *payment.Webhook, metrics *Metrics) {
	api := paymentApi{webhook: webhook, metrics: metrics}
	g.POST("/webhooks/payment", api.handleWebhook)
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

func (api *paymentApi) handleWebhook(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBody))
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}

	evt, err := api.webhook.Handle(ctx.Request().Context(), ctx.Request().Header.Get(payment.HashHeader), body)
	if err != nil {
		switch errors.Cause(err) {
		case payment.ErrUnauthorized:
			api.metrics.paymentResult("", "unauthorized")
			return echo.NewHTTPError(http.StatusUnauthorized, payment.ErrUnauthorized.Error())
		case payment.ErrMalformed:
			api.metrics.paymentResult("", "malformed")
			return echo.NewHTTPError(http.StatusBadRequest, payment.ErrMalformed.Error())
		}
		api.metrics.paymentResult(evt.Event, "error")
		return errors.Wrap(err, "handling payment webhook")
	}

	api.metrics.paymentResult(evt.Event, "received")
	return ctx.JSON(http.StatusOK, WebhookResponse{Received: true})
}
