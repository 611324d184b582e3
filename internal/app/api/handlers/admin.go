package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statistics"
	syncsvc "github.com/agriev/we-sdk-payments/internal/app/service/sync"
	"github.com/agriev/we-sdk-payments/pkg/logctx"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

// @Summary      List payments (admin)
// @Description  Operator listing with field/operator filters, pagination and sorting.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body payment.ScanPaymentsRequest true "Filters"
// @Success      200 {object} payment.ScanPaymentsResponse
// @Router       /api/v1/admin/payments/list [post]
func ApiAdminListPayments(mgr payment.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.ScanPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		res, err := mgr.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin list failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Payment statistics (admin)
// @Description  Per-day payment counts grouped by state.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.Request true "Date range and filters"
// @Success      200 {array} statistics.Row
// @Router       /api/v1/admin/payments/statistic [post]
func ApiAdminStatistic(stats *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		rows, err := stats.DailyByState(c.Request.Context(), &req)
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin statistic failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

type adminSyncRequest struct {
	IDs           []int64 `json:"ids" binding:"required"`
	PaymentSystem string  `json:"payment_system" binding:"required"`
	Direction     string  `json:"direction" binding:"required"`
}

// @Summary      Reconcile payments (admin)
// @Description  Polls the gateway for each payment and replays missed notifications. Responds with a CSV of per-payment outcomes.
// @Tags         Admin
// @Accept       json
// @Produce      text/csv
// @Param        request body handlers.adminSyncRequest true "Payment ids, gateway and direction"
// @Success      200 {string} string "id,updated,error"
// @Router       /api/v1/admin/payments/sync [post]
func ApiAdminSync(mgr payment.Manager, syncs *syncsvc.Set, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adminSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		system := types.PaymentSystem(req.PaymentSystem)
		if !system.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Unknown payment system."})
			return
		}
		synchronizer, err := syncs.Get(system, syncsvc.Direction(req.Direction))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		payments, err := mgr.LoadForSync(c.Request.Context(), req.IDs)
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin sync load failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal error."})
			return
		}

		results := syncsvc.SyncMany(c.Request.Context(), payments, synchronizer)

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="sync.csv"`)
		c.Status(http.StatusOK)
		if err := syncsvc.WriteCSV(c.Writer, results); err != nil {
			logctx.FromGin(c, log).Errorw("admin sync csv write failed", "err", err)
		}
	}
}

func RegisterAdminPaymentRoutes(r gin.IRouter, mgr payment.Manager, stats *statistics.Service, syncs *syncsvc.Set, log *zap.SugaredLogger) {
	r.POST("/payments/list", ApiAdminListPayments(mgr, log))
	r.POST("/payments/statistic", ApiAdminStatistic(stats, log))
	r.POST("/payments/sync", ApiAdminSync(mgr, syncs, log))
}
