package service

import (
	postgres "github.com/kirinyoku/dirabus/internal/repository/postgres"
	redis "github.com/kirinyoku/dirabus/internal/repository/redis"
	"github.com/kirinyoku/dirabus/internal/service/booking"
	"github.com/kirinyoku/dirabus/internal/service/catalog"
	"github.com/kirinyoku/dirabus/internal/service/operations"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Booking    *booking.Service
	Catalog    *catalog.Service
	Operations *operations.Service
}

type Config struct {
	Booking booking.Config
	Catalog catalog.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redis.EventsPubSub,
	limiter *redis.SlidingWindowLimiter,
	log logrus.FieldLogger,
	cfg Config,
) *Services {
	return &Services{
		Booking:    booking.New(store, pubsub, limiter, log, cfg.Booking),
		Catalog:    catalog.New(store, cache, log, cfg.Catalog),
		Operations: operations.New(store, pubsub, log),
	}
}
