package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhook"
	"github.com/agriev/we-sdk-payments/pkg/logctx"
	"github.com/agriev/we-sdk-payments/pkg/response"
	"github.com/agriev/we-sdk-payments/pkg/signature"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

// writeWebhookError maps processing failures onto the gateway-facing
// contract: taxonomy errors become 400 (403 for signature) with the error
// envelope, anything else a generic parameter error.
func writeWebhookError(c *gin.Context, log *zap.SugaredLogger, err error) {
	var fail *webhook.Error
	if errors.As(err, &fail) {
		status := http.StatusBadRequest
		if fail.Code == response.ErrorCodeInvalidSignature {
			status = http.StatusForbidden
		}
		c.JSON(status, response.Err(fail.Code))
		return
	}
	logctx.FromGin(c, log).Errorw("webhook processing failed", "err", err)
	c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidParameter))
}

// @Summary      Xsolla notifications
// @Description  Receives Xsolla webhooks, authenticated by SHA1 body signature.
// @Tags         Webhooks
// @Accept       json
// @Success      204
// @Router       /webhooks/xsolla [post]
func ApiXsollaWebhook(hooks *webhook.Handler, mgr payment.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}
		if !json.Valid(body) {
			c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidJSON))
			return
		}

		// The signing secret is per project, so the project id is read
		// before the body can be trusted.
		projectID, err := webhook.PeekXsollaProject(body)
		if err != nil || projectID == "" {
			c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidParameter))
			return
		}
		project, err := mgr.ProjectByProjectID(c.Request.Context(), types.PaymentSystemXsolla, projectID)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidProject))
			return
		}
		if !signature.VerifyXsolla(body, c.GetHeader("Authorization"), project.SecretKey) {
			c.JSON(http.StatusForbidden, response.Err(response.ErrorCodeInvalidSignature))
			return
		}

		if err := hooks.Process(c.Request.Context(), string(types.PaymentSystemXsolla), body); err != nil {
			writeWebhookError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary      Ukassa notifications
// @Description  Receives YooKassa webhooks, authenticated by IP allow-list.
// @Tags         Webhooks
// @Accept       json
// @Success      200
// @Router       /webhooks/ukassa [post]
func ApiUkassaWebhook(hooks *webhook.Handler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}
		if err := hooks.Process(c.Request.Context(), string(types.PaymentSystemUkassa), body); err != nil {
			writeWebhookError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{})
	}
}
