package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"patitas/internal/models"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate creates the schema if it doesn't exist.
func (db *DB) Migrate(ctx context.Context) error {
	sql := `
	CREATE TABLE IF NOT EXISTS reports (
		id            BIGSERIAL PRIMARY KEY,
		kind          TEXT NOT NULL,
		pet_name      TEXT NOT NULL DEFAULT '',
		species       TEXT NOT NULL DEFAULT '',
		breed         TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT '',
		latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
		contact_name  TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		is_resolved   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_reports_kind_created
		ON reports (kind, created_at DESC);

	CREATE TABLE IF NOT EXISTS campaigns (
		id          BIGSERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location    TEXT NOT NULL DEFAULT '',
		latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
		starts_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ends_at     TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_campaigns_starts_at
		ON campaigns (starts_at DESC);
	`
	_, err := db.Pool.Exec(ctx, sql)
	return err
}

// CreateReport inserts a new pet report and returns it.
func (db *DB) CreateReport(ctx context.Context, r *models.Report) (*models.Report, error) {
	var out models.Report
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO reports (kind, pet_name, species, breed, description,
		                     location, latitude, longitude, contact_name, contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, kind, pet_name, species, breed, description, location,
		          latitude, longitude, contact_name, contact_phone, is_resolved, created_at
	`, r.Kind, r.PetName, r.Species, r.Breed, r.Description,
		r.Location, r.Latitude, r.Longitude, r.ContactName, r.ContactPhone).Scan(
		&out.ID, &out.Kind, &out.PetName, &out.Species, &out.Breed, &out.Description,
		&out.Location, &out.Latitude, &out.Longitude, &out.ContactName, &out.ContactPhone,
		&out.IsResolved, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReport returns a report by id.
func (db *DB) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	var r models.Report
	err := db.Pool.QueryRow(ctx, `
		SELECT id, kind, pet_name, species, breed, description, location,
		       latitude, longitude, contact_name, contact_phone, is_resolved, created_at
		FROM reports WHERE id = $1
	`, id).Scan(
		&r.ID, &r.Kind, &r.PetName, &r.Species, &r.Breed, &r.Description,
		&r.Location, &r.Latitude, &r.Longitude, &r.ContactName, &r.ContactPhone,
		&r.IsResolved, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns recent reports, optionally filtered by kind.
func (db *DB) ListReports(ctx context.Context, kind models.ReportKind, limit int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, kind, pet_name, species, breed, description, location,
		       latitude, longitude, contact_name, contact_phone, is_resolved, created_at
		FROM reports`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, kind, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		var r models.Report
		if err := rows.Scan(
			&r.ID, &r.Kind, &r.PetName, &r.Species, &r.Breed, &r.Description,
			&r.Location, &r.Latitude, &r.Longitude, &r.ContactName, &r.ContactPhone,
			&r.IsResolved, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

// UpdateReportLocation rewrites the composite location string and marker
// coordinates of a report (map drag, suggestion pick, or worker backfill).
func (db *DB) UpdateReportLocation(ctx context.Context, id int64, location string, lat, lng float64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE reports SET location = $2, latitude = $3, longitude = $4 WHERE id = $1
	`, id, location, lat, lng)
	return err
}

// SetReportResolved marks a report as resolved (pet reunited/adopted).
func (db *DB) SetReportResolved(ctx context.Context, id int64, resolved bool) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE reports SET is_resolved = $2 WHERE id = $1
	`, id, resolved)
	return err
}

// CreateCampaign inserts a new campaign and returns it.
func (db *DB) CreateCampaign(ctx context.Context, c *models.Campaign) (*models.Campaign, error) {
	var out models.Campaign
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO campaigns (title, description, location, latitude, longitude, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, title, description, location, latitude, longitude, starts_at, ends_at, created_at
	`, c.Title, c.Description, c.Location, c.Latitude, c.Longitude, c.StartsAt, c.EndsAt).Scan(
		&out.ID, &out.Title, &out.Description, &out.Location,
		&out.Latitude, &out.Longitude, &out.StartsAt, &out.EndsAt, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCampaign returns a campaign by id.
func (db *DB) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	var c models.Campaign
	err := db.Pool.QueryRow(ctx, `
		SELECT id, title, description, location, latitude, longitude, starts_at, ends_at, created_at
		FROM campaigns WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Title, &c.Description, &c.Location,
		&c.Latitude, &c.Longitude, &c.StartsAt, &c.EndsAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCampaigns returns campaigns that have not ended yet.
func (db *DB) ListCampaigns(ctx context.Context, limit int) ([]*models.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, description, location, latitude, longitude, starts_at, ends_at, created_at
		FROM campaigns
		WHERE ends_at IS NULL OR ends_at > $1
		ORDER BY starts_at DESC LIMIT $2
	`, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.Location,
			&c.Latitude, &c.Longitude, &c.StartsAt, &c.EndsAt, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, &c)
	}
	return campaigns, rows.Err()
}

// UpdateCampaignLocation rewrites the composite location string and
// marker coordinates of a campaign.
func (db *DB) UpdateCampaignLocation(ctx context.Context, id int64, location string, lat, lng float64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE campaigns SET location = $2, latitude = $3, longitude = $4 WHERE id = $1
	`, id, location, lat, lng)
	return err
}
