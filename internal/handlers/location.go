package handlers

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"patitas/internal/geocode"
	"patitas/internal/resolver"
	"patitas/internal/suggest"
)

// session holds the location-form state of one open report/campaign
// form: the suggestion flow, the in-flight reverse lookup, and the last
// applied resolution (so partial geocoder answers never wipe fields the
// user already has).
type session struct {
	mu       sync.Mutex
	loc      resolver.Location
	flow     *suggest.Flow
	inflight geocode.Inflight
	batches  chan []geocode.Place
}

func (s *session) pushBatch(places []geocode.Place) {
	// Keep only the newest batch; an unread older one is stale by definition.
	select {
	case <-s.batches:
	default:
	}
	s.batches <- places
}

// getSession returns the form session for the request, creating it on
// first use. Clients pass a random id in X-Session-ID.
func (h *Handlers) getSession(c *fiber.Ctx) (*session, bool) {
	id := c.Get("X-Session-ID")
	if id == "" {
		id = c.Query("session")
	}
	if id == "" {
		return nil, false
	}
	if v, ok := h.sessions.Load(id); ok {
		return v.(*session), true
	}
	s := &session{batches: make(chan []geocode.Place, 1)}
	s.flow = suggest.NewFlow(h.searcher(), h.SuggestDebounce, s.pushBatch)
	actual, _ := h.sessions.LoadOrStore(id, s)
	return actual.(*session), true
}

// searcher wraps the geocode client with the redis cache.
func (h *Handlers) searcher() suggest.Searcher {
	return searchFunc(func(ctx context.Context, query string) ([]geocode.Place, error) {
		if h.Cache != nil {
			if places, ok := h.Cache.GetSearch(ctx, query); ok {
				return places, nil
			}
		}
		places, err := h.Geocoder.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		if h.Cache != nil {
			if err := h.Cache.SetSearch(ctx, query, places); err != nil {
				log.Printf("[api] cache search: %v", err)
			}
		}
		return places, nil
	})
}

type searchFunc func(ctx context.Context, query string) ([]geocode.Place, error)

func (f searchFunc) Search(ctx context.Context, query string) ([]geocode.Place, error) {
	return f(ctx, query)
}

// locationResponse is the shared answer shape of the resolution endpoints.
func locationResponse(loc resolver.Location) fiber.Map {
	return fiber.Map{
		"location":  loc,
		"composite": resolver.Composite(loc),
	}
}

// ReverseLocation handles POST /api/location/reverse -- a map marker was
// placed or dragged. Last request wins: a newer drag aborts the lookup
// still running for the previous position.
func (h *Handlers) ReverseLocation(c *fiber.Ctx) error {
	sess, ok := h.getSession(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing session id"})
	}
	var body struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if !h.Monitor.Available() {
		// Don't make the user wait out a timeout; the form switches to
		// manual dropdown selection.
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":  "geocoder unavailable",
			"manual": true,
		})
	}

	place, err := h.cachedReverse(c, sess, body.Latitude, body.Longitude)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// A newer marker position superseded this one.
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "reverse geocoding failed"})
	}

	resolved := resolver.Location{}
	if place != nil {
		resolved = h.Resolver.FromAddress(place.Address)
	}

	sess.mu.Lock()
	sess.flow.BeginUpdate()
	sess.loc = resolver.Apply(sess.loc, resolved)
	sess.flow.SetScope(sess.loc)
	sess.flow.EndUpdate()
	loc := sess.loc
	sess.mu.Unlock()

	return c.JSON(locationResponse(loc))
}

func (h *Handlers) cachedReverse(c *fiber.Ctx, sess *session, lat, lng float64) (*geocode.Place, error) {
	ctx := context.Background()
	if h.Cache != nil {
		if place, ok := h.Cache.GetReverse(ctx, lat, lng); ok {
			return place, nil
		}
	}

	reqCtx, cancel := sess.inflight.Begin(ctx)
	defer cancel()
	place, err := h.Geocoder.Reverse(reqCtx, lat, lng)
	if err != nil {
		return nil, err
	}
	if h.Cache != nil {
		if err := h.Cache.SetReverse(ctx, lat, lng, place); err != nil {
			log.Printf("[api] cache reverse: %v", err)
		}
	}
	return place, nil
}

// SuggestLocation handles GET /api/location/suggest?q=... -- one
// keystroke of the address field. The response blocks through the
// debounce window and the search; a request superseded by a newer
// keystroke answers 204.
func (h *Handlers) SuggestLocation(c *fiber.Ctx) error {
	sess, ok := h.getSession(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing session id"})
	}
	query := c.Query("q")

	sess.flow.Input(query)
	if query == "" {
		return c.JSON(fiber.Map{"suggestions": []geocode.Place{}})
	}

	// Debounce plus the geocoder's own timeout.
	wait := h.SuggestDebounce + 12*time.Second
	select {
	case places := <-sess.batches:
		if sess.flow.State() != suggest.StateSuggestionsShown {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(fiber.Map{"suggestions": places})
	case <-time.After(wait):
		if sess.flow.State() == suggest.StateDebouncing || sess.flow.State() == suggest.StateSearching {
			// A newer keystroke restarted the window.
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(fiber.Map{"suggestions": []geocode.Place{}})
	}
}

// SelectSuggestion handles POST /api/location/select -- the user picked
// one of the shown suggestions. The resolved values are written back
// under ProgrammaticUpdate so the write-back cannot trigger a new search.
func (h *Handlers) SelectSuggestion(c *fiber.Ctx) error {
	sess, ok := h.getSession(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing session id"})
	}
	var body struct {
		Index int `json:"index"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	place, ok := sess.flow.Select(body.Index)
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no such suggestion"})
	}

	resolved := h.Resolver.FromAddress(place.Address)

	sess.mu.Lock()
	sess.loc = resolver.Apply(sess.loc, resolved)
	sess.flow.SetScope(sess.loc)
	sess.flow.EndUpdate()
	loc := sess.loc
	sess.mu.Unlock()

	resp := locationResponse(loc)
	resp["latitude"] = place.Lat
	resp["longitude"] = place.Lng
	return c.JSON(resp)
}

// ParseLocation handles GET /api/location/parse?location=... -- edit
// mode opens with a stored composite string and needs it split back into
// form fields.
func (h *Handlers) ParseLocation(c *fiber.Ctx) error {
	loc := h.Resolver.ParseComposite(c.Query("location"))

	// Seed the session so subsequent suggestions are scoped to the
	// parsed hierarchy.
	if sess, ok := h.getSession(c); ok {
		sess.mu.Lock()
		sess.loc = loc
		sess.flow.SetScope(loc)
		sess.mu.Unlock()
	}

	return c.JSON(locationResponse(loc))
}

// SetManualLocation handles POST /api/location/manual -- dropdown
// selection while the geocoder is down, or a user correction. Hierarchy
// values are trusted as-is since the dropdowns only offer valid entries.
func (h *Handlers) SetManualLocation(c *fiber.Ctx) error {
	sess, ok := h.getSession(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing session id"})
	}
	var loc resolver.Location
	if err := c.BodyParser(&loc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	sess.mu.Lock()
	sess.flow.BeginUpdate()
	sess.loc = loc
	sess.flow.SetScope(loc)
	sess.flow.EndUpdate()
	sess.mu.Unlock()

	resp := locationResponse(loc)
	if lat, lng, ok := h.Geodata.Centroid(loc.Department, loc.Province); ok {
		// Center the map on the selected area when there is no marker yet.
		resp["latitude"] = lat
		resp["longitude"] = lng
	}
	return c.JSON(resp)
}

// Departments handles GET /api/geodata/departments.
func (h *Handlers) Departments(c *fiber.Ctx) error {
	names := make([]string, 0)
	for _, d := range h.Geodata.Departments() {
		names = append(names, d.Name)
	}
	return c.JSON(fiber.Map{"departments": names})
}

// Provinces handles GET /api/geodata/:department/provinces.
func (h *Handlers) Provinces(c *fiber.Ctx) error {
	department := pathParam(c, "department")
	names := make([]string, 0)
	for _, p := range h.Geodata.Provinces(department) {
		names = append(names, p.Name)
	}
	return c.JSON(fiber.Map{"provinces": names})
}

// Districts handles GET /api/geodata/:department/:province/districts.
func (h *Handlers) Districts(c *fiber.Ctx) error {
	department := pathParam(c, "department")
	province := pathParam(c, "province")
	names := make([]string, 0)
	for _, d := range h.Geodata.Districts(department, province) {
		names = append(names, d.Name)
	}
	return c.JSON(fiber.Map{"districts": names})
}

// pathParam returns a URL-decoded route parameter ("La%20Libertad").
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
