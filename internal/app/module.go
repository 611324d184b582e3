package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/agriev/we-sdk-payments/internal/app/api/server"
	"github.com/agriev/we-sdk-payments/internal/app/service/bonus"
	"github.com/agriev/we-sdk-payments/internal/app/service/callback"
	"github.com/agriev/we-sdk-payments/internal/app/service/directory"
	"github.com/agriev/we-sdk-payments/internal/app/service/gateway"
	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statistics"
	syncsvc "github.com/agriev/we-sdk-payments/internal/app/service/sync"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhook"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhooklog"
	"github.com/agriev/we-sdk-payments/internal/platform/db"
	"github.com/agriev/we-sdk-payments/internal/platform/ukassa"
	"github.com/agriev/we-sdk-payments/internal/platform/xsolla"
	"github.com/agriev/we-sdk-payments/pkg/config"
	"github.com/agriev/we-sdk-payments/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	fx.Provide(xsolla.NewClient),
	fx.Provide(ukassa.NewClient),
	directory.Module,
	bonus.Module,
	gateway.Module,
	payment.Module,
	webhooklog.Module,
	callback.Module,
	webhook.Module,
	syncsvc.Module,
	statistics.Module,
)
