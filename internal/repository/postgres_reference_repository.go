package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserRepository reads users from PostgreSQL.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository constructs a PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// FindByNickname returns the user or ErrNotFound.
func (r *PostgresUserRepository) FindByNickname(ctx context.Context, nickname string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id, uuid, nickname FROM users WHERE nickname = $1`,
		nickname,
	).Scan(&u.ID, &u.UUID, &u.Nickname)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// PostgresGameRepository reads games from PostgreSQL.
type PostgresGameRepository struct {
	db *pgxpool.Pool
}

// NewPostgresGameRepository constructs a PostgresGameRepository.
func NewPostgresGameRepository(db *pgxpool.Pool) *PostgresGameRepository {
	return &PostgresGameRepository{db: db}
}

// FindByUUID returns the game or ErrNotFound.
func (r *PostgresGameRepository) FindByUUID(ctx context.Context, uuid string) (*model.Game, error) {
	var g model.Game
	err := r.db.QueryRow(ctx,
		`SELECT id, uuid, name FROM games WHERE uuid = $1`,
		uuid,
	).Scan(&g.ID, &g.UUID, &g.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &g, nil
}

// PostgresLocationRepository stores locations in PostgreSQL.
type PostgresLocationRepository struct {
	db *pgxpool.Pool
}

// NewPostgresLocationRepository constructs a PostgresLocationRepository.
func NewPostgresLocationRepository(db *pgxpool.Pool) *PostgresLocationRepository {
	return &PostgresLocationRepository{db: db}
}

// FindByTownAndZipCodeAndAddress returns the location or ErrNotFound.
func (r *PostgresLocationRepository) FindByTownAndZipCodeAndAddress(ctx context.Context, town, zipCode, address string) (*model.Location, error) {
	var l model.Location
	err := r.db.QueryRow(ctx,
		`SELECT id, town, zip_code, address FROM locations
		 WHERE town = $1 AND zip_code = $2 AND address = $3`,
		town, zipCode, address,
	).Scan(&l.ID, &l.Town, &l.ZipCode, &l.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}

// Save inserts the location. The unique (town, zip_code, address) constraint
// turns a concurrent duplicate insert into a no-op that still returns the row.
func (r *PostgresLocationRepository) Save(ctx context.Context, l *model.Location) (*model.Location, error) {
	out := *l
	err := r.db.QueryRow(ctx,
		`INSERT INTO locations (town, zip_code, address)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (town, zip_code, address) DO UPDATE SET town = EXCLUDED.town
		 RETURNING id`,
		out.Town, out.ZipCode, out.Address,
	).Scan(&out.ID)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}
	return &out, nil
}
