package device

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/devicetrust/pkg/pg"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

// PostgresStore implements Store on a pgx connection pool. Hash
// uniqueness rides on the devices.device_hash unique constraint, so
// concurrent registrations of the same hash are linearized by the
// database rather than by application locking.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const deviceColumns = `id, user_id, device_hash, device_name, device_type, browser, browser_version,
	os, os_version, fingerprint, fingerprint_confidence, last_seen_ip, country,
	trust_score, trust_level, is_active, created_at, updated_at, last_used_at`

func scanDevice(row pgx.Row) (Device, error) {
	var d Device
	var level string
	err := row.Scan(
		&d.ID, &d.UserID, &d.Hash, &d.Metadata.Name, &d.Metadata.Type,
		&d.Metadata.Browser, &d.Metadata.BrowserVersion, &d.Metadata.OS, &d.Metadata.OSVersion,
		&d.Fingerprint, &d.FingerprintConfidence, &d.LastSeenIP, &d.Country,
		&d.TrustScore, &level, &d.Active, &d.CreatedAt, &d.UpdatedAt, &d.LastUsedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Device{}, ErrNotFound
		}
		return Device{}, err
	}
	d.TrustLevel = trust.Level(level)
	return d, nil
}

func (s *PostgresStore) Create(ctx context.Context, d Device) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		d.ID, d.UserID, d.Hash, d.Metadata.Name, d.Metadata.Type,
		d.Metadata.Browser, d.Metadata.BrowserVersion, d.Metadata.OS, d.Metadata.OSVersion,
		d.Fingerprint, d.FingerprintConfidence, d.LastSeenIP, d.Country,
		d.TrustScore, string(d.TrustLevel), d.Active, d.CreatedAt, d.UpdatedAt, d.LastUsedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Device, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	return scanDevice(row)
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (Device, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_hash = $1`, hash)
	return scanDevice(row)
}

func (s *PostgresStore) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDevices(rows)
}

func (s *PostgresStore) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Device, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM devices WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = total
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+deviceColumns+` FROM devices
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	devices, err := collectDevices(rows)
	if err != nil {
		return nil, 0, err
	}
	return devices, total, nil
}

func (s *PostgresStore) UpdateTrust(ctx context.Context, id uuid.UUID, score int, level trust.Level) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices SET trust_score = $2, trust_level = $3, updated_at = now()
		WHERE id = $1`, id, score, string(level))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices SET is_active = false, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices SET last_used_at = $2, updated_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectDevices(rows pgx.Rows) ([]Device, error) {
	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
