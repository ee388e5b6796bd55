// Package backfill upgrades stored location strings that carry no
// hierarchy data. Reports and campaigns submitted while the geocoder was
// unreachable persist whatever the user typed; once coordinates exist, a
// reverse geocode plus one resolver pass fills in
// department/province/district.
package backfill

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"patitas/internal/cache"
	"patitas/internal/database"
	"patitas/internal/geocode"
	"patitas/internal/mq"
	"patitas/internal/resolver"
)

// Service consumes created events and backfills hierarchy data.
type Service struct {
	db        *database.DB
	cache     *cache.Cache
	geocoder  *geocode.Client
	resolver  *resolver.Resolver
	publisher *mq.Publisher
}

func NewService(db *database.DB, c *cache.Cache, g *geocode.Client, r *resolver.Resolver, p *mq.Publisher) *Service {
	return &Service{db: db, cache: c, geocoder: g, resolver: r, publisher: p}
}

// Run consumes the report.created and campaign.created queues until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context, consumer *mq.Consumer) error {
	reports, err := consumer.Consume(mq.QueueReportCreated)
	if err != nil {
		return err
	}
	campaigns, err := consumer.Consume(mq.QueueCampaignCreated)
	if err != nil {
		return err
	}
	log.Println("[backfill] consuming report.created and campaign.created")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-reports:
			if !ok {
				return errors.New("report delivery channel closed")
			}
			s.dispatch(ctx, d, s.handleReport)
		case d, ok := <-campaigns:
			if !ok {
				return errors.New("campaign delivery channel closed")
			}
			s.dispatch(ctx, d, s.handleCampaign)
		}
	}
}

func (s *Service) dispatch(ctx context.Context, d amqp.Delivery, handle func(context.Context, []byte) error) {
	if err := handle(ctx, d.Body); err != nil {
		log.Printf("[backfill] handle failed: %v", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (s *Service) handleReport(ctx context.Context, body []byte) error {
	var msg mq.ReportCreatedMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		// Poison message; don't requeue.
		log.Printf("[backfill] bad report message: %v", err)
		return nil
	}

	merged, location, ok, err := s.resolve(ctx, msg.Location, msg.Latitude, msg.Longitude)
	if err != nil || !ok {
		return err
	}

	if err := s.db.UpdateReportLocation(ctx, msg.ReportID, location, msg.Latitude, msg.Longitude); err != nil {
		return err
	}
	log.Printf("[backfill] report %d: %q -> %q", msg.ReportID, msg.Location, location)

	out := mq.LocationResolvedMsg{
		ReportID:   msg.ReportID,
		Location:   location,
		Department: merged.Department,
		Province:   merged.Province,
		District:   merged.District,
		When:       time.Now(),
	}
	if err := s.publisher.Publish(ctx, mq.RoutingLocationResolved, out); err != nil {
		log.Printf("[backfill] publish location.resolved: %v", err)
	}
	return nil
}

func (s *Service) handleCampaign(ctx context.Context, body []byte) error {
	var msg mq.CampaignCreatedMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Printf("[backfill] bad campaign message: %v", err)
		return nil
	}

	_, location, ok, err := s.resolve(ctx, msg.Location, msg.Latitude, msg.Longitude)
	if err != nil || !ok {
		return err
	}

	if err := s.db.UpdateCampaignLocation(ctx, msg.CampaignID, location, msg.Latitude, msg.Longitude); err != nil {
		return err
	}
	log.Printf("[backfill] campaign %d: %q -> %q", msg.CampaignID, msg.Location, location)
	return nil
}

// resolve decides whether a stored location string needs backfilling and,
// when it does, produces the upgraded location. ok is false when the
// record should be left alone.
func (s *Service) resolve(ctx context.Context, location string, lat, lng float64) (resolver.Location, string, bool, error) {
	parsed := s.resolver.ParseComposite(location)
	if parsed.Department != "" {
		// Hierarchy already present, nothing to do.
		return resolver.Location{}, "", false, nil
	}
	if lat == 0 && lng == 0 {
		// No coordinates to resolve from; leave the raw text alone.
		return resolver.Location{}, "", false, nil
	}

	place, err := s.reverse(ctx, lat, lng)
	if err != nil {
		return resolver.Location{}, "", false, err
	}
	if place == nil {
		return resolver.Location{}, "", false, nil
	}

	resolved := s.resolver.FromAddress(place.Address)
	if resolved.Department == "" {
		return resolver.Location{}, "", false, nil
	}

	// Never clear what the user originally typed.
	merged := resolver.Apply(parsed, resolved)
	return merged, resolver.Composite(merged), true, nil
}

// reverse is a cache-through reverse geocode.
func (s *Service) reverse(ctx context.Context, lat, lng float64) (*geocode.Place, error) {
	if place, ok := s.cache.GetReverse(ctx, lat, lng); ok {
		return place, nil
	}
	place, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetReverse(ctx, lat, lng, place); err != nil {
		log.Printf("[backfill] cache set: %v", err)
	}
	return place, nil
}
