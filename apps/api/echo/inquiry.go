package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/surgepay/core"
	"github.com/trezcool/surgepay/core/inquiry"
)

var errInquirySendFailed = echo.NewHTTPError(http.StatusInternalServerError, inquiry.MsgSendFailure)

type inquiryApi struct {
	svc     inquiry.Service
	logger  core.Logger
	metrics *Metrics
}

// registerInquiryAPI serves every inquiry kind at /<kind name>.
func registerInquiryAPI(g *echo.Group, svc inquiry.Service, logger core.Logger, metrics *Metrics) {
	api := inquiryApi{svc: svc, logger: logger, metrics: metrics}
	for _, kind := range inquiry.Kinds {
		g.POST("/"+kind.Name, api.submit(kind))
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (api *inquiryApi) submit(kind inquiry.Kind) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var body map[string]interface{}
		if err := json.NewDecoder(ctx.Request().Body).Decode(&body); err != nil && err != io.EOF {
			api.metrics.inquiryResult(kind.Name, "invalid")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
		}

		err := api.svc.Submit(ctx.Request().Context(), kind, toSubmission(body))
		switch {
		case err == nil:
		case core.IsValidationError(err):
			api.metrics.inquiryResult(kind.Name, "invalid")
			return err
		default:
			api.metrics.inquiryResult(kind.Name, "error")
			api.logger.Error("sending "+kind.Name+" inquiry", err)
			return errInquirySendFailed
		}

		api.metrics.inquiryResult(kind.Name, "sent")
		return ctx.JSON(http.StatusOK, MessageResponse{Message: kind.SuccessMessage})
	}
}

// toSubmission keeps the scalar values of body as strings.
func toSubmission(body map[string]interface{}) inquiry.Submission {
	sub := make(inquiry.Submission, len(body))
	for k, v := range body {
		switch val := v.(type) {
		case string:
			sub[k] = val
		case float64:
			sub[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			sub[k] = strconv.FormatBool(val)
		case nil:
		default:
			sub[k] = fmt.Sprint(val)
		}
	}
	return sub
}
