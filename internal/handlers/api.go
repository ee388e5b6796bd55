package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"patitas/internal/cache"
	"patitas/internal/database"
	"patitas/internal/geocode"
	"patitas/internal/geodata"
	"patitas/internal/health"
	"patitas/internal/models"
	"patitas/internal/mq"
	"patitas/internal/resolver"
)

type Handlers struct {
	DB        *database.DB
	Cache     *cache.Cache
	Geocoder  *geocode.Client
	Resolver  *resolver.Resolver
	Geodata   *geodata.Index
	Monitor   *health.GeocoderMonitor
	Publisher *mq.Publisher

	// SuggestDebounce is the per-session suggestion debounce window.
	SuggestDebounce time.Duration

	// Per-form-session location state (suggestion flow, in-flight
	// reverse lookups). Keyed by client session id.
	sessions sync.Map

	// In-memory response cache for the default /api/reports listing.
	reportCache   []byte
	reportCacheAt time.Time
	reportCacheMu sync.RWMutex
}

const (
	// ReportCacheTTL is how long to cache the default report list response.
	ReportCacheTTL = 15 * time.Second
	// ReportCacheMaxAgeSec is the Cache-Control max-age header value.
	ReportCacheMaxAgeSec = 15
	// DefaultListLimit bounds listing queries.
	DefaultListLimit = 100
)

// CreateReport handles POST /api/reports. The location string is stored
// as submitted; if it carries no hierarchy, the backfill worker upgrades
// it later from the coordinates.
func (h *Handlers) CreateReport(c *fiber.Ctx) error {
	var r models.Report
	if err := c.BodyParser(&r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if !r.Kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid kind"})
	}

	ctx := context.Background()
	created, err := h.DB.CreateReport(ctx, &r)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store report"})
	}
	h.invalidateReportCache()

	if h.Publisher != nil {
		msg := mq.ReportCreatedMsg{
			ReportID:  created.ID,
			Kind:      string(created.Kind),
			Location:  created.Location,
			Latitude:  created.Latitude,
			Longitude: created.Longitude,
			When:      time.Now(),
		}
		if err := h.Publisher.Publish(ctx, mq.RoutingReportCreated, msg); err != nil {
			log.Printf("[api] publish report.created: %v", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetReport handles GET /api/reports/:id.
func (h *Handlers) GetReport(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid report id"})
	}
	r, err := h.DB.GetReport(context.Background(), int64(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	}
	return c.JSON(r)
}

// ListReports handles GET /api/reports?kind=lost&limit=50. The default
// listing (no filters) is cached server-side so the map page doesn't hit
// the DB on every visitor.
func (h *Handlers) ListReports(c *fiber.Ctx) error {
	kind := models.ReportKind(c.Query("kind"))
	if kind != "" && !kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid kind"})
	}
	limit := c.QueryInt("limit", DefaultListLimit)

	cacheable := kind == "" && limit == DefaultListLimit
	if cacheable {
		h.reportCacheMu.RLock()
		if h.reportCache != nil && time.Since(h.reportCacheAt) < ReportCacheTTL {
			data := h.reportCache
			h.reportCacheMu.RUnlock()
			return sendCachedJSON(c, data)
		}
		h.reportCacheMu.RUnlock()
	}

	reports, err := h.DB.ListReports(context.Background(), kind, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load reports"})
	}
	if reports == nil {
		reports = make([]*models.Report, 0)
	}

	if !cacheable {
		return c.JSON(reports)
	}

	data, err := json.Marshal(reports)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "marshal error"})
	}
	h.reportCacheMu.Lock()
	h.reportCache = data
	h.reportCacheAt = time.Now()
	h.reportCacheMu.Unlock()
	return sendCachedJSON(c, data)
}

// ResolveReport handles PATCH /api/reports/:id/resolved.
func (h *Handlers) ResolveReport(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid report id"})
	}
	var body struct {
		Resolved bool `json:"resolved"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := h.DB.SetReportResolved(context.Background(), int64(id), body.Resolved); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update report"})
	}
	h.invalidateReportCache()
	return c.JSON(fiber.Map{"status": "ok"})
}

// CreateCampaign handles POST /api/campaigns.
func (h *Handlers) CreateCampaign(c *fiber.Ctx) error {
	var cm models.Campaign
	if err := c.BodyParser(&cm); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if cm.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	if cm.StartsAt.IsZero() {
		cm.StartsAt = time.Now()
	}

	ctx := context.Background()
	created, err := h.DB.CreateCampaign(ctx, &cm)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store campaign"})
	}

	if h.Publisher != nil {
		msg := mq.CampaignCreatedMsg{
			CampaignID: created.ID,
			Location:   created.Location,
			Latitude:   created.Latitude,
			Longitude:  created.Longitude,
			When:       time.Now(),
		}
		if err := h.Publisher.Publish(ctx, mq.RoutingCampaignCreated, msg); err != nil {
			log.Printf("[api] publish campaign.created: %v", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetCampaign handles GET /api/campaigns/:id.
func (h *Handlers) GetCampaign(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid campaign id"})
	}
	cm, err := h.DB.GetCampaign(context.Background(), int64(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign not found"})
	}
	return c.JSON(cm)
}

// ListCampaigns handles GET /api/campaigns -- active campaigns only.
func (h *Handlers) ListCampaigns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", DefaultListLimit)
	campaigns, err := h.DB.ListCampaigns(context.Background(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load campaigns"})
	}
	if campaigns == nil {
		campaigns = make([]*models.Campaign, 0)
	}
	return c.JSON(campaigns)
}

// Status handles GET /api/status. Clients use geocoder_available to
// decide between map-driven resolution and manual dropdown entry.
func (h *Handlers) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":             "ok",
		"geocoder_available": h.Monitor.Available(),
	})
}

func (h *Handlers) invalidateReportCache() {
	h.reportCacheMu.Lock()
	h.reportCache = nil
	h.reportCacheMu.Unlock()
}

func sendCachedJSON(c *fiber.Ctx, data []byte) error {
	c.Set("Content-Type", "application/json")
	c.Set("Cache-Control", "public, max-age="+strconv.Itoa(ReportCacheMaxAgeSec))
	return c.Send(data)
}
