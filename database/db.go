package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tripweaver/itinerary"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// ─── Models ──────────────────────────────────────────────────────────────────

type Inquiry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
	Category  string    `json:"category"`
	Subject   string    `json:"subject" binding:"required"`
	Message   string    `json:"message" binding:"required"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Booking struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	HotelID         string    `json:"accommodation_id" binding:"required"`
	RoomTypeID      string    `json:"room_type_id"`
	CheckIn         string    `json:"check_in" binding:"required"`
	CheckOut        string    `json:"check_out" binding:"required"`
	GuestCount      int       `json:"guest_count"`
	SpecialRequests string    `json:"special_requests"`
	CreatedAt       time.Time `json:"created_at"`
}

// SavedPlan is a snapshot of a plan the user chose to keep.
type SavedPlan struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Destination string          `json:"destination"`
	Plan        *itinerary.Plan `json:"plan"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Profile is the account data and preferences kept per signed-in user.
type Profile struct {
	UserID      string      `json:"uid"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	PhotoURL    string      `json:"photo_url"`
	PhoneNumber string      `json:"phone_number"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Preferences struct {
	Language      string `json:"language"`
	Currency      string `json:"currency"`
	Notifications bool   `json:"notifications"`
}

// NewProfile returns an empty profile with the default preferences.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID: userID,
		Preferences: Preferences{
			Language:      "ko",
			Currency:      "KRW",
			Notifications: true,
		},
	}
}

// ─── Init ─────────────────────────────────────────────────────────────────────

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres, retrying while the database comes up.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		zerolog.Ctx(ctx).Warn().Err(err).Int("attempt", i+1).Msg("waiting for database")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	db.Close()
	return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ─── Migrations ───────────────────────────────────────────────────────────────

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS inquiries (
		id         TEXT PRIMARY KEY,
		user_id    TEXT,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		category   TEXT,
		subject    TEXT NOT NULL,
		message    TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		hotel_id         TEXT NOT NULL,
		room_type_id     TEXT,
		check_in         TEXT NOT NULL,
		check_out        TEXT NOT NULL,
		guest_count      INTEGER DEFAULT 1,
		special_requests TEXT,
		created_at       TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS travel_plans (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		destination TEXT NOT NULL,
		plan_json   JSONB NOT NULL,
		created_at  TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id       TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL DEFAULT '',
		photo_url     TEXT NOT NULL DEFAULT '',
		phone_number  TEXT NOT NULL DEFAULT '',
		language      TEXT NOT NULL DEFAULT 'ko',
		currency      TEXT NOT NULL DEFAULT 'KRW',
		notifications BOOLEAN NOT NULL DEFAULT TRUE,
		deleted       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ DEFAULT NOW(),
		updated_at    TIMESTAMPTZ DEFAULT NOW(),
		deleted_at    TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_travel_plans_user_id ON travel_plans(user_id, created_at DESC)`,
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Inquiries ────────────────────────────────────────────────────────────────

func (s *Store) SaveInquiry(ctx context.Context, in *Inquiry) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Status == "" {
		in.Status = "pending"
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inquiries (id, user_id, name, email, category, subject, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		in.ID, in.UserID, in.Name, in.Email, in.Category, in.Subject, in.Message, in.Status).
		Scan(&in.CreatedAt)
	if err != nil {
		return fmt.Errorf("save inquiry: %w", err)
	}
	return nil
}

func (s *Store) ListInquiries(ctx context.Context, userID string) ([]Inquiry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, email, category, subject, message, status, created_at
		FROM inquiries WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	out := []Inquiry{}
	for rows.Next() {
		var in Inquiry
		if err := rows.Scan(&in.ID, &in.UserID, &in.Name, &in.Email, &in.Category,
			&in.Subject, &in.Message, &in.Status, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

func (s *Store) SaveBooking(ctx context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.GuestCount <= 0 {
		b.GuestCount = 1
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO bookings (id, user_id, hotel_id, room_type_id, check_in, check_out, guest_count, special_requests)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		b.ID, b.UserID, b.HotelID, b.RoomTypeID, b.CheckIn, b.CheckOut, b.GuestCount, b.SpecialRequests).
		Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("save booking: %w", err)
	}
	return nil
}

func (s *Store) ListBookings(ctx context.Context, userID string) ([]Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, hotel_id, room_type_id, check_in, check_out, guest_count, special_requests, created_at
		FROM bookings WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.HotelID, &b.RoomTypeID, &b.CheckIn, &b.CheckOut,
			&b.GuestCount, &b.SpecialRequests, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ─── Travel plans ─────────────────────────────────────────────────────────────

func (s *Store) SavePlan(ctx context.Context, userID string, p *itinerary.Plan) (*SavedPlan, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}

	sp := &SavedPlan{
		ID:          uuid.New().String(),
		UserID:      userID,
		Destination: p.Destination,
		Plan:        p,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO travel_plans (id, user_id, destination, plan_json)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		sp.ID, sp.UserID, sp.Destination, doc).
		Scan(&sp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return sp, nil
}

func (s *Store) ListPlans(ctx context.Context, userID string) ([]SavedPlan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, destination, plan_json, created_at
		FROM travel_plans WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	out := []SavedPlan{}
	for rows.Next() {
		sp, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sp)
	}
	return out, rows.Err()
}

// GetPlan returns sql.ErrNoRows when no plan has the id.
func (s *Store) GetPlan(ctx context.Context, id string) (*SavedPlan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, destination, plan_json, created_at
		FROM travel_plans WHERE id = $1`, id)
	return scanPlan(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(r scanner) (*SavedPlan, error) {
	var (
		sp  SavedPlan
		doc []byte
	)
	if err := r.Scan(&sp.ID, &sp.UserID, &sp.Destination, &doc, &sp.CreatedAt); err != nil {
		return nil, err
	}
	p, err := itinerary.LoadPlan(string(doc))
	if err != nil {
		return nil, fmt.Errorf("decode saved plan %s: %w", sp.ID, err)
	}
	sp.Plan = p
	return &sp, nil
}

// ─── Profiles ─────────────────────────────────────────────────────────────────

// GetProfile returns sql.ErrNoRows when the user has no profile or deleted it.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, email, photo_url, phone_number,
		       language, currency, notifications, created_at, updated_at
		FROM user_profiles WHERE user_id = $1 AND NOT deleted`, userID).
		Scan(&p.UserID, &p.DisplayName, &p.Email, &p.PhotoURL, &p.PhoneNumber,
			&p.Preferences.Language, &p.Preferences.Currency, &p.Preferences.Notifications,
			&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates the profile or overwrites every field of an existing
// one. Writing a deleted profile restores it.
func (s *Store) UpsertProfile(ctx context.Context, p *Profile) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO user_profiles (user_id, display_name, email, photo_url, phone_number, language, currency, notifications)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name  = EXCLUDED.display_name,
			email         = EXCLUDED.email,
			photo_url     = EXCLUDED.photo_url,
			phone_number  = EXCLUDED.phone_number,
			language      = EXCLUDED.language,
			currency      = EXCLUDED.currency,
			notifications = EXCLUDED.notifications,
			deleted       = FALSE,
			deleted_at    = NULL,
			updated_at    = NOW()
		RETURNING created_at, updated_at`,
		p.UserID, p.DisplayName, p.Email, p.PhotoURL, p.PhoneNumber,
		p.Preferences.Language, p.Preferences.Currency, p.Preferences.Notifications).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// DeleteProfile marks the profile deleted and keeps the row. It returns
// sql.ErrNoRows when there is no live profile to delete.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles SET deleted = TRUE, deleted_at = NOW()
		WHERE user_id = $1 AND NOT deleted`, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
