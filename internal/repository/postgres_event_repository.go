package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const selectEvents = `
SELECT e.id, e.uuid, e.title, e.description, e.min_player, e.max_player, e.is_private,
       e.creation_date, e.limit_date, e.starting_date, e.ending_date,
       u.nickname, g.uuid, l.id, l.town, l.zip_code, l.address, e.version
FROM events e
JOIN users u     ON u.id = e.creator_id
JOIN games g     ON g.id = e.game_id
JOIN locations l ON l.id = e.location_id`

// PostgresEventRepository stores events in PostgreSQL. Membership lists live
// in event_members, one row per (event, user), so a user can never be both
// registered and waiting.
type PostgresEventRepository struct {
	db *pgxpool.Pool
}

// NewPostgresEventRepository constructs a PostgresEventRepository.
func NewPostgresEventRepository(db *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// FindByUUID returns a single event or ErrNotFound.
func (r *PostgresEventRepository) FindByUUID(ctx context.Context, uuid string) (*model.Event, error) {
	events, err := r.query(ctx, selectEvents+` WHERE e.uuid = $1`, uuid)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events[0], nil
}

// FindAllByStartingDateAfter returns events starting strictly after t.
func (r *PostgresEventRepository) FindAllByStartingDateAfter(ctx context.Context, t time.Time) ([]*model.Event, error) {
	events, err := r.query(ctx, selectEvents+` WHERE e.starting_date > $1 ORDER BY e.id`, t)
	if err != nil {
		return nil, fmt.Errorf("list events by starting date: %w", err)
	}
	return events, nil
}

// FindAllByLocationTownContaining returns events whose town contains s (case-sensitive).
func (r *PostgresEventRepository) FindAllByLocationTownContaining(ctx context.Context, s string) ([]*model.Event, error) {
	events, err := r.query(ctx, selectEvents+` WHERE strpos(l.town, $1) > 0 ORDER BY e.id`, s)
	if err != nil {
		return nil, fmt.Errorf("list events by town: %w", err)
	}
	return events, nil
}

func (r *PostgresEventRepository) query(ctx context.Context, sql string, args ...any) ([]*model.Event, error) {
	return queryEvents(ctx, r.db, sql, args...)
}

func queryEvents(ctx context.Context, q querier, sql string, args ...any) ([]*model.Event, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Event, error) {
		var e model.Event
		err := row.Scan(
			&e.ID, &e.UUID, &e.Title, &e.Description, &e.MinPlayer, &e.MaxPlayer, &e.IsPrivate,
			&e.CreationDate, &e.LimitDate, &e.StartingDate, &e.EndingDate,
			&e.Creator, &e.Game, &e.Location.ID, &e.Location.Town, &e.Location.ZipCode, &e.Location.Address,
			&e.Version,
		)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if len(events) == 0 {
		return []*model.Event{}, nil
	}

	ids := make([]int64, 0, len(events))
	byID := make(map[int64]*model.Event, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}
	if err := loadMembers(ctx, q, ids, byID); err != nil {
		return nil, err
	}
	return events, nil
}

func loadMembers(ctx context.Context, q querier, ids []int64, byID map[int64]*model.Event) error {
	rows, err := q.Query(ctx,
		`SELECT m.event_id, u.nickname, m.waiting
		 FROM event_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.event_id = ANY($1)
		 ORDER BY m.event_id, m.waiting, m.position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventID  int64
			nickname string
			waiting  bool
		)
		if err := rows.Scan(&eventID, &nickname, &waiting); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		e := byID[eventID]
		if waiting {
			e.WaitingUsers = append(e.WaitingUsers, nickname)
		} else {
			e.RegisteredUsers = append(e.RegisteredUsers, nickname)
		}
	}
	return rows.Err()
}

// Save inserts or updates the event and rewrites its membership rows in one
// transaction.
//
// Updates lock the event row with SELECT … FOR UPDATE and compare its version
// with the one the caller read. Two requests that both loaded version N race
// for the lock; the first commits N+1 and the second sees a mismatch and gets
// ErrVersionConflict instead of overwriting the first one's membership change.
func (r *PostgresEventRepository) Save(ctx context.Context, e *model.Event) (saved *model.Event, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	out := e.Clone()
	if out.ID == 0 {
		err = tx.QueryRow(ctx,
			`INSERT INTO events (uuid, title, description, min_player, max_player, is_private,
			                     creation_date, limit_date, starting_date, ending_date,
			                     creator_id, game_id, location_id, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			         (SELECT id FROM users WHERE nickname = $11),
			         (SELECT id FROM games WHERE uuid = $12),
			         $13, 1)
			 RETURNING id, version`,
			out.UUID, out.Title, out.Description, out.MinPlayer, out.MaxPlayer, out.IsPrivate,
			out.CreationDate, out.LimitDate, out.StartingDate, out.EndingDate,
			out.Creator, out.Game, out.Location.ID,
		).Scan(&out.ID, &out.Version)
		if err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
	} else {
		var version int64
		err = tx.QueryRow(ctx, `SELECT version FROM events WHERE id = $1 FOR UPDATE`, out.ID).Scan(&version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("lock event row: %w", err)
		}
		if version != out.Version {
			err = ErrVersionConflict
			return nil, err
		}

		if err = updateEvent(ctx, tx, out); err != nil {
			return nil, err
		}
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit transaction: %w", err)
		}
		return out, nil
	}

	if err = insertMembers(ctx, tx, out); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

// Modify locks the event row for the whole transaction, so membership checks
// in apply always see the latest lists.
func (r *PostgresEventRepository) Modify(ctx context.Context, uuid string, apply func(*model.Event) bool) (result *model.Event, changed bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	// A no-op after a successful commit.
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err = tx.QueryRow(ctx, `SELECT id FROM events WHERE uuid = $1 FOR UPDATE`, uuid).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("lock event row: %w", err)
	}
	events, err := queryEvents(ctx, tx, selectEvents+` WHERE e.id = $1`, id)
	if err != nil {
		return nil, false, fmt.Errorf("get event: %w", err)
	}
	if len(events) == 0 {
		return nil, false, ErrNotFound
	}

	e := events[0]
	current := e.Clone()
	if !apply(e) {
		return current, false, nil
	}
	e.ID, e.Version = current.ID, current.Version
	if err = updateEvent(ctx, tx, e); err != nil {
		return nil, false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return e, true, nil
}

// updateEvent writes the scalar columns, bumps the version and rewrites the
// membership rows. The caller holds the row lock.
func updateEvent(ctx context.Context, q querier, e *model.Event) error {
	_, err := q.Exec(ctx,
		`UPDATE events SET title = $2, description = $3, min_player = $4, max_player = $5,
		        is_private = $6, limit_date = $7, starting_date = $8, ending_date = $9,
		        creator_id = (SELECT id FROM users WHERE nickname = $10),
		        game_id = (SELECT id FROM games WHERE uuid = $11),
		        location_id = $12, version = version + 1
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.MinPlayer, e.MaxPlayer,
		e.IsPrivate, e.LimitDate, e.StartingDate, e.EndingDate,
		e.Creator, e.Game, e.Location.ID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	e.Version++

	if _, err := q.Exec(ctx, `DELETE FROM event_members WHERE event_id = $1`, e.ID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	return insertMembers(ctx, q, e)
}

// insertMembers writes both membership lists in a single batch.
func insertMembers(ctx context.Context, q querier, e *model.Event) error {
	const insert = `INSERT INTO event_members (event_id, user_id, waiting, position)
	                VALUES ($1, (SELECT id FROM users WHERE nickname = $2), $3, $4)`

	batch := &pgx.Batch{}
	for pos, nickname := range e.RegisteredUsers {
		batch.Queue(insert, e.ID, nickname, false, pos)
	}
	for pos, nickname := range e.WaitingUsers {
		batch.Queue(insert, e.ID, nickname, true, pos)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert members: %w", err)
	}
	return nil
}

// DeleteByUUID removes the event; membership rows cascade.
func (r *PostgresEventRepository) DeleteByUUID(ctx context.Context, uuid string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM events WHERE uuid = $1`, uuid); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
