package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/devicetrust/pkg/pg"
)

// PostgresStore implements Store on a pgx connection pool. The active
// count and oldest-session queries ride on a partial index over
// (user_id, created_at) WHERE is_active, keeping admission checks cheap.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = `id, user_id, device_id, token, ip_address, user_agent,
	expires_at, is_active, created_at, updated_at`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.DeviceID, &s.Token, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sess.ID, sess.UserID, sess.DeviceID, sess.Token, sess.IPAddress, sess.UserAgent,
		sess.ExpiresAt, sess.Active, sess.CreatedAt, sess.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM device_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (s *PostgresStore) ListByUserID(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM device_sessions WHERE user_id = $1`
	if activeOnly {
		query += ` AND is_active AND expires_at > now()`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSessions(rows)
}

func (s *PostgresStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM device_sessions
		WHERE user_id = $1 AND is_active AND expires_at > now()`, userID).Scan(&count)
	return count, err
}

func (s *PostgresStore) OldestActiveByUser(ctx context.Context, userID uuid.UUID) (Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM device_sessions
		WHERE user_id = $1 AND is_active AND expires_at > now()
		ORDER BY created_at, id
		LIMIT 1`, userID)
	return scanSession(row)
}

func (s *PostgresStore) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE device_sessions SET is_active = false, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RevokeByDevice(ctx context.Context, deviceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE device_sessions SET is_active = false, updated_at = now()
		WHERE device_id = $1 AND is_active
		RETURNING id`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) DeactivateExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE device_sessions SET is_active = false, updated_at = now()
		WHERE id IN (
			SELECT id FROM device_sessions
			WHERE is_active AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
		)`, now, limit)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func collectSessions(rows pgx.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
