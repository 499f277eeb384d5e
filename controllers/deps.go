package controllers

import (
	"context"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/automation"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/billing"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/realtime"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/storage"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/telemetry"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/weather"
)

// Forecaster is satisfied by *weather.Client.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
}

// Deps carries the optional integrations. A nil field means the
// integration is not configured and its endpoints answer 503.
type Deps struct {
	Hub      *realtime.Hub
	Weather  Forecaster
	Billing  *billing.Service
	Storage  storage.ObjectStore
	Engine   *automation.Engine
	Ingestor *telemetry.Ingestor
}

var deps = Deps{Hub: realtime.Default}

// Configure installs the integrations used by the handlers.
func Configure(d Deps) {
	if d.Hub == nil {
		d.Hub = realtime.Default
	}
	deps = d
}
