package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/app/service/directory"
	"github.com/agriev/we-sdk-payments/internal/app/service/gateway"
	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/pkg/logctx"
	"github.com/agriev/we-sdk-payments/pkg/response"
	"github.com/agriev/we-sdk-payments/pkg/signature"
)

const amountMismatchMsg = "Cost of all purchased items is not equal to the total purchase cost."

// playerTokenHeader carries the platform session token of the purchasing
// player for the endpoints authenticated by player instead of game secret.
const playerTokenHeader = "X-Player-Token"

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidJSON))
		return nil, false
	}
	return body, true
}

func gameSecret(c *gin.Context, dir directory.Directory, gameID string) (string, bool) {
	secret, err := dir.GameSecret(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidProject))
		return "", false
	}
	return secret, true
}

func verifyBody(c *gin.Context, body []byte, secret string) bool {
	if !signature.VerifyBody(body, c.GetHeader("Authorization"), secret) {
		c.JSON(http.StatusForbidden, response.Err(response.ErrorCodeInvalidSignature))
		return false
	}
	return true
}

func verifyQuery(c *gin.Context, secret string) bool {
	if !signature.VerifyQuery(c.Request.URL.Query(), c.GetHeader("Authorization"), secret) {
		c.JSON(http.StatusForbidden, response.Err(response.ErrorCodeInvalidSignature))
		return false
	}
	return true
}

func playerFromToken(c *gin.Context, dir directory.Directory) (string, bool) {
	playerID, err := dir.ResolvePlayerToken(c.Request.Context(), c.GetHeader(playerTokenHeader))
	if err != nil {
		c.JSON(http.StatusForbidden, response.Err(response.ErrorCodeInvalidUser))
		return "", false
	}
	return playerID, true
}

// writeServiceError maps payment service failures onto the wire contract.
func writeServiceError(c *gin.Context, log *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, payment.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.Is(err, payment.ErrAmountMismatch):
		c.JSON(http.StatusBadRequest, response.FieldErrors("purchase", amountMismatchMsg))
	case errors.Is(err, payment.ErrInvalidState):
		c.JSON(http.StatusBadRequest, response.FieldErrors("state", "Invalid state."))
	case errors.Is(err, payment.ErrPlayerMismatch):
		c.JSON(http.StatusForbidden, response.Err(response.ErrorCodeInvalidUser))
	case errors.Is(err, payment.ErrUnknownPlayer):
		c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidUser))
	case errors.Is(err, payment.ErrUnknownSystem):
		c.JSON(http.StatusBadRequest, response.FieldErrors("payment_system", "Unknown payment system."))
	case errors.Is(err, payment.ErrProjectNotFound):
		c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidProject))
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Payment system is unavailable."})
	default:
		logctx.FromGin(c, log).Errorw("payment request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
	}
}

// @Summary      Issue payment token
// @Description  Creates a payment for a purchase and returns the redeemable token.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request body payment.IssueTokenRequest true "Purchase"
// @Success      200 {object} payment.IssueTokenResponse
// @Router       /api/v1/payments [post]
func ApiIssueToken(mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}
		var req payment.IssueTokenRequest
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidJSON))
			return
		}
		secret, ok := gameSecret(c, dir, req.GameID)
		if !ok {
			return
		}
		if !verifyBody(c, body, secret) {
			return
		}

		res, err := mgr.IssueToken(c.Request.Context(), &req)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Redeem payment token
// @Description  Exchanges a payment token for a gateway checkout session.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request body payment.RedeemRequest true "Token and payment system"
// @Success      200 {object} payment.RedeemResponse
// @Router       /api/v1/payments/redeem [post]
func ApiRedeem(mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, ok := playerFromToken(c, dir)
		if !ok {
			return
		}
		var req payment.RedeemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidJSON))
			return
		}
		req.PlayerID = playerID

		res, err := mgr.Redeem(c.Request.Context(), &req)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Read one payment
// @Tags         Payments
// @Produce      json
// @Param        app_id query string true "Game id"
// @Param        transaction_id query int true "Transaction id"
// @Success      200 {object} payment.View
// @Router       /api/v1/payments [get]
func ApiGetPayment(mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID := c.Query("app_id")
		if gameID == "" {
			c.JSON(http.StatusBadRequest, response.FieldErrors("app_id", "This field is required."))
			return
		}
		transactionID, err := strconv.ParseInt(c.Query("transaction_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.FieldErrors("transaction_id", "A valid integer is required."))
			return
		}
		secret, ok := gameSecret(c, dir, gameID)
		if !ok {
			return
		}
		if !verifyQuery(c, secret) {
			return
		}

		p, err := mgr.Get(c.Request.Context(), gameID, transactionID)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, payment.NewView(p))
	}
}

func listRequestFromQuery(c *gin.Context) (*payment.ListRequest, bool) {
	req := &payment.ListRequest{
		GameID:        c.Query("app_id"),
		PlayerID:      c.Query("player_id"),
		GameSessionID: c.Query("game_sid"),
		State:         c.Query("state"),
	}
	if req.GameID == "" {
		c.JSON(http.StatusBadRequest, response.FieldErrors("app_id", "This field is required."))
		return nil, false
	}
	if raw := c.Query("transaction_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.FieldErrors("transaction_id", "A valid integer is required."))
			return nil, false
		}
		req.TransactionID = &id
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, response.FieldErrors("page", "A valid page number is required."))
			return nil, false
		}
		req.Page = page
	}
	return req, true
}

// @Summary      List payments
// @Tags         Payments
// @Produce      json
// @Param        app_id query string true "Game id"
// @Success      200 {object} payment.ListResponse
// @Router       /api/v1/payments/list [get]
func ApiListPayments(mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := listRequestFromQuery(c)
		if !ok {
			return
		}
		secret, ok := gameSecret(c, dir, req.GameID)
		if !ok {
			return
		}
		if !verifyQuery(c, secret) {
			return
		}

		res, err := mgr.List(c.Request.Context(), req)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

type filterRequest struct {
	GameID        string `json:"app_id"`
	PlayerID      string `json:"player_id"`
	GameSessionID string `json:"game_sid"`
	TransactionID *int64 `json:"transaction_id"`
	State         string `json:"state"`
	Page          int    `json:"page"`
}

// @Summary      Filter payments
// @Description  Body-driven listing with opaque next/previous page objects.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Success      200 {object} payment.FilterResponse
// @Router       /api/v1/payments/filter [post]
func ApiFilterPayments(mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}
		var req filterRequest
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidJSON))
			return
		}
		if req.GameID == "" {
			c.JSON(http.StatusBadRequest, response.FieldErrors("app_id", "This field is required."))
			return
		}
		secret, ok := gameSecret(c, dir, req.GameID)
		if !ok {
			return
		}
		if !verifyBody(c, body, secret) {
			return
		}

		res, err := mgr.Filter(c.Request.Context(), &payment.ListRequest{
			GameID:        req.GameID,
			PlayerID:      req.PlayerID,
			GameSessionID: req.GameSessionID,
			TransactionID: req.TransactionID,
			State:         req.State,
			Page:          req.Page,
		})
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

type updateStateRequest struct {
	State string `json:"state"`
}

// @Summary      Confirm payment result
// @Description  Developer-triggered transition to payment_confirmed or refund_confirmed.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        id path int true "Transaction id"
// @Success      200 {object} payment.View
// @Router       /api/v1/payments/{id}/state [patch]
func ApiUpdateState(mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		transactionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		body, ok := readBody(c)
		if !ok {
			return
		}
		var req updateStateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, response.Err(response.ErrorCodeInvalidJSON))
			return
		}

		// The signing game is the payment's own; resolve it first.
		p, err := mgr.FindByID(c.Request.Context(), transactionID)
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		secret, ok := gameSecret(c, dir, p.GameID)
		if !ok {
			return
		}
		if !verifyBody(c, body, secret) {
			return
		}

		updated, err := mgr.UpdateState(c.Request.Context(), p.GameID, transactionID, statemachine.EventType(req.State))
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, payment.NewView(updated))
	}
}

type byTokenResponse struct {
	TransactionID int64  `json:"transaction_id"`
	PlayerID      string `json:"player_id"`
}

// @Summary      Look up payment by token
// @Tags         Payments
// @Produce      json
// @Param        token path string true "Payment token"
// @Success      200 {object} handlers.byTokenResponse
// @Router       /api/v1/payments/by_token/{token} [get]
func ApiGetByToken(mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID, ok := playerFromToken(c, dir)
		if !ok {
			return
		}
		p, err := mgr.GetByToken(c.Request.Context(), c.Param("token"))
		if err != nil {
			writeServiceError(c, log, err)
			return
		}
		if p.PlayerID != playerID {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
			return
		}
		c.JSON(http.StatusOK, byTokenResponse{TransactionID: p.ID, PlayerID: p.PlayerID})
	}
}

func RegisterPaymentRoutes(r gin.IRouter, mgr payment.Manager, dir directory.Directory, log *zap.SugaredLogger) {
	r.POST("", ApiIssueToken(mgr, dir, log))
	r.GET("", ApiGetPayment(mgr, dir, log))
	r.POST("/redeem", ApiRedeem(mgr, dir, log))
	r.GET("/list", ApiListPayments(mgr, dir, log))
	r.POST("/filter", ApiFilterPayments(mgr, dir, log))
	r.PATCH("/:id/state", ApiUpdateState(mgr, dir, log))
	r.GET("/by_token/:token", ApiGetByToken(mgr, dir, log))
}
