package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"device-checkin/internal/checkin/domain"
)

// identityRowID is the primary key of the singleton identity row.
const identityRowID = 1

// SQLRepository stores the identity as a single row in device_identity. The queries are
// portable between Postgres (pgx) and SQLite.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository returns a repository backed by db. The schema is created by internal/db/migrate.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Load returns the stored identity, or the zero identity when no row exists.
// It returns an error only for database failures, not for a missing row.
func (r *SQLRepository) Load(ctx context.Context) (domain.DeviceIdentity, error) {
	var (
		id    domain.DeviceIdentity
		token int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT device_id, security_token, digest, last_checkin_ms FROM device_identity WHERE id = $1`,
		identityRowID,
	).Scan(&id.DeviceID, &token, &id.Digest, &id.LastCheckinMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DeviceIdentity{}, nil
		}
		return domain.DeviceIdentity{}, err
	}
	// security_token holds the unsigned token's bit pattern.
	id.SecurityToken = uint64(token)
	return id, nil
}

// Save upserts the identity row. Device id and security token are written in the same statement
// so the pair is always replaced atomically.
func (r *SQLRepository) Save(ctx context.Context, id domain.DeviceIdentity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_identity (id, device_id, security_token, digest, last_checkin_ms, updated_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			device_id = excluded.device_id,
			security_token = excluded.security_token,
			digest = excluded.digest,
			last_checkin_ms = excluded.last_checkin_ms,
			updated_at_ms = excluded.updated_at_ms`,
		identityRowID, id.DeviceID, int64(id.SecurityToken), id.Digest, id.LastCheckinMs, time.Now().UTC().UnixMilli(),
	)
	return err
}
