package http

import (
	"github.com/nats-io/nats.go"

	"github.com/aritzm/guidepost/internal/adapters/postgres"
	"github.com/aritzm/guidepost/internal/adapters/valkey"
	"github.com/aritzm/guidepost/internal/core/ports"
	"github.com/aritzm/guidepost/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	POIs   *usecases.POIService
	Guides *usecases.AudioGuideService
	Tours  *usecases.GuideService
	Events ports.EventPublisher
	NATS   *nats.Conn
	DB     *postgres.DB
	Cache  *valkey.Cache
}
