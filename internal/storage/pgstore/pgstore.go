// Package pgstore persists users and trips in PostgreSQL. Trip records live in
// a json column so key order and number literals come back as written.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"journal-service/internal/trips"
	"journal-service/internal/users"
)

const uniqueViolation = "23505"

// Users is a users.Repository over the users table.
type Users struct{ pool *pgxpool.Pool }

func NewUsers(pool *pgxpool.Pool) *Users { return &Users{pool: pool} }

func (r *Users) Create(ctx context.Context, u *users.User) error {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id,email,password_hash,created_at) VALUES ($1,$2,$3,$4)`,
		id, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return users.ErrEmailTaken
		}
		return err
	}
	u.ID = id
	return nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	var u users.User
	err := r.pool.QueryRow(ctx,
		`SELECT id::text,email,password_hash,created_at FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Trips is a trips.Repository over the trips table.
type Trips struct{ pool *pgxpool.Pool }

func NewTrips(pool *pgxpool.Pool) *Trips { return &Trips{pool: pool} }

const insertTrip = `INSERT INTO trips (user_id,doc) VALUES ($1,$2::json)`

func (r *Trips) Insert(ctx context.Context, rec *trips.Record) error {
	owner, doc, err := encodeTrip(rec)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertTrip, owner, doc)
	return err
}

// InsertMany writes the batch in one transaction; either every record is
// stored or none is.
func (r *Trips) InsertMany(ctx context.Context, recs []*trips.Record) error {
	batch := &pgx.Batch{}
	for _, rec := range recs {
		owner, doc, err := encodeTrip(rec)
		if err != nil {
			return err
		}
		batch.Queue(insertTrip, owner, doc)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Trips) ListByOwner(ctx context.Context, userID string) ([]*trips.Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT doc::text FROM trips WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*trips.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		rec := trips.NewRecord()
		if err := json.Unmarshal([]byte(doc), rec); err != nil {
			return nil, fmt.Errorf("decode trip: %w", err)
		}
		rec.Delete("_id")
		out = append(out, rec)
	}
	return out, rows.Err()
}

func encodeTrip(rec *trips.Record) (owner, doc string, err error) {
	if v, ok := rec.Get("user_id"); ok {
		owner, _ = v.(string)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", "", fmt.Errorf("encode trip: %w", err)
	}
	return owner, string(b), nil
}
