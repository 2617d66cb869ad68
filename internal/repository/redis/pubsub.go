package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirinyoku/dirabus/internal/domain"
	"github.com/redis/go-redis/v9"
)

// BookingChanged is published after a booking is created or changes status.
type BookingChanged struct {
	Type       string               `json:"type"`
	ReceiptID  string               `json:"receipt_id"`
	BusID      int64                `json:"bus_id"`
	TravelDate string               `json:"travel_date"`
	Status     domain.BookingStatus `json:"status"`
	TsUnix     int64                `json:"ts_unix"`
}

type EventsPubSub struct {
	rdb *redis.Client
}

func NewEventsPubSub(rdb *redis.Client) *EventsPubSub {
	return &EventsPubSub{rdb: rdb}
}

func (p *EventsPubSub) PublishBookingChanged(ctx context.Context, b domain.Booking) error {
	msg := BookingChanged{
		Type:       "booking_changed",
		ReceiptID:  b.ReceiptID,
		BusID:      b.BusID,
		TravelDate: b.TravelDate.Format(domain.DateLayout),
		Status:     b.Status,
		TsUnix:     time.Now().Unix(),
	}

	return p.publish(ctx, ChannelBookingsChanged(), msg)
}

func (p *EventsPubSub) PublishBusLocation(ctx context.Context, u domain.LocationUpdate) error {
	return p.publish(ctx, ChannelBusLocation(u.BusID), u)
}

func (p *EventsPubSub) publish(ctx context.Context, channel string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redisrepo.EventsPubSub.publish: %w", err)
	}

	return p.rdb.Publish(ctx, channel, b).Err()
}

// SubscribeBookingChanges blocks, calling handler for every booking event
// until ctx is done.
func (p *EventsPubSub) SubscribeBookingChanges(ctx context.Context, handler func(ctx context.Context, ev BookingChanged)) error {
	return subscribe(ctx, p.rdb, ChannelBookingsChanged(), func(ctx context.Context, ev BookingChanged) bool {
		return ev.ReceiptID != ""
	}, handler)
}

// SubscribeBusLocation blocks, calling handler for every location update of
// the bus until ctx is done.
func (p *EventsPubSub) SubscribeBusLocation(
	ctx context.Context,
	busID int64,
	handler func(ctx context.Context, u domain.LocationUpdate),
) error {
	return subscribe(ctx, p.rdb, ChannelBusLocation(busID), func(ctx context.Context, u domain.LocationUpdate) bool {
		return u.BusID == busID
	}, handler)
}

func subscribe[T any](
	ctx context.Context,
	rdb *redis.Client,
	channel string,
	valid func(ctx context.Context, v T) bool,
	handler func(ctx context.Context, v T),
) error {
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	// subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}

			var v T
			if err := json.Unmarshal([]byte(m.Payload), &v); err == nil && valid(ctx, v) {
				handler(ctx, v)
			}
		}
	}
}
