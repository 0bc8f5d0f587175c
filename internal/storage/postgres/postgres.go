// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface using a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/roomsplit/internal/models"
	"github.com/mmynk/roomsplit/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store on a pgx pool, which lets the
// service reuse connections instead of dialing per query.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New connects to connStr and runs migrations.
func New(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes every pooled connection.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) CreateHousehold(ctx context.Context, household *models.Household) error {
	if household.ID == "" {
		household.ID = uuid.New().String()
	}
	if household.CreatedAt == 0 {
		household.CreatedAt = time.Now().Unix()
	}

	_, err := p.pool.Exec(ctx,
		"INSERT INTO households (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)",
		household.ID, household.Name, household.CreatedBy, household.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert household: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetHousehold(ctx context.Context, householdID string) (*models.Household, error) {
	h := &models.Household{}
	err := p.pool.QueryRow(ctx,
		"SELECT id, name, created_by, created_at FROM households WHERE id = $1",
		householdID,
	).Scan(&h.ID, &h.Name, &h.CreatedBy, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("household %s: %w", householdID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return h, nil
}

func (p *PostgresStore) ListHouseholdsForUser(ctx context.Context, userID string) ([]*models.Household, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, created_by, created_at FROM households
		 WHERE created_by = $1
		    OR id IN (SELECT household_id FROM members WHERE user_id = $1)
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()

	var households []*models.Household
	for rows.Next() {
		h := &models.Household{}
		if err := rows.Scan(&h.ID, &h.Name, &h.CreatedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan household: %w", err)
		}
		households = append(households, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate households: %w", err)
	}
	return households, nil
}

func (p *PostgresStore) DeleteHousehold(ctx context.Context, householdID string) error {
	return p.deleteByID(ctx, "households", householdID)
}

func (p *PostgresStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.CreatedAt == 0 {
		room.CreatedAt = time.Now().Unix()
	}

	_, err := p.pool.Exec(ctx,
		"INSERT INTO rooms (id, household_id, name, created_at) VALUES ($1, $2, $3, $4)",
		room.ID, room.HouseholdID, room.Name, room.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListRooms(ctx context.Context, householdID string) ([]*models.Room, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, household_id, name, created_at FROM rooms WHERE household_id = $1 ORDER BY name, id",
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		r := &models.Room{}
		if err := rows.Scan(&r.ID, &r.HouseholdID, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

func (p *PostgresStore) DeleteRoom(ctx context.Context, roomID string) error {
	return p.deleteByID(ctx, "rooms", roomID)
}

// deleteByID deletes one row by primary key. table is always a constant
// from this package.
func (p *PostgresStore) deleteByID(ctx context.Context, table, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, storage.ErrNotFound)
	}
	return nil
}

// nullString maps "" to SQL NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
