package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/docs"
	"github.com/agriev/we-sdk-payments/internal/app/api/handlers"
	mw "github.com/agriev/we-sdk-payments/internal/app/api/middleware"
	"github.com/agriev/we-sdk-payments/internal/app/service/directory"
	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statistics"
	syncsvc "github.com/agriev/we-sdk-payments/internal/app/service/sync"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhook"
	cfgpkg "github.com/agriev/we-sdk-payments/pkg/config"
	metrics "github.com/agriev/we-sdk-payments/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	mgr payment.Manager,
	dir directory.Directory,
	hooks *webhook.Handler,
	stats *statistics.Service,
	syncs *syncsvc.Set,
) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Gateway notification receivers, each gated by its gateway's published
	// source ranges before anything else runs.
	hooksGroup := r.Group("/webhooks")
	hooksGroup.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	hooksGroup.POST("/xsolla",
		mw.IPAllowList(log, cfg.Xsolla.AllowedNets),
		handlers.ApiXsollaWebhook(hooks, mgr, log))
	hooksGroup.POST("/ukassa",
		mw.IPAllowList(log, cfg.Ukassa.AllowedNets),
		handlers.ApiUkassaWebhook(hooks, log))

	// Client purchase API
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterPaymentRoutes(apiV1.Group("/payments"), mgr, dir, log)

	// Admin payment APIs
	handlers.RegisterAdminPaymentRoutes(apiV1.Group("/admin"), mgr, stats, syncs, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
