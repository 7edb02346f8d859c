package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"cuidame-health/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, access_token, refresh_token, expires_at, refresh_expires_at,
	last_used_at, created_at, is_active, device_info, device_name, device_type, ip_address, user_agent`

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The session must have ID set. A token already held by another
// row yields domain.ErrDuplicateToken.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.UserID, s.AccessToken, s.RefreshToken, s.ExpiresAt, s.RefreshExpiresAt,
		timeToNullTime(s.LastUsedAt), s.CreatedAt, s.IsActive,
		nullString(s.DeviceInfo), nullString(s.DeviceName), nullString(s.DeviceType),
		nullString(s.IPAddress), nullString(s.UserAgent),
	)
	return mapWriteErr(err)
}

// FindByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
}

// FindByAccessToken returns the session currently holding token, or nil.
func (r *PostgresRepository) FindByAccessToken(ctx context.Context, token string) (*domain.Session, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE access_token = $1`, token)
}

// FindByRefreshToken returns the session currently holding token, or nil.
func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	return r.findOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token = $1`, token)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// FindActiveByUser returns the user's active sessions ordered by created_at, then id.
func (r *PostgresRepository) FindActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND is_active
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateTokens rotates the token pair of an active session. When PreviousRefreshToken is set
// the update only applies to the row still holding it.
func (r *PostgresRepository) UpdateTokens(ctx context.Context, id string, rot domain.Rotation) error {
	var usedAt sql.NullTime
	if !rot.UsedAt.IsZero() {
		usedAt = sql.NullTime{Time: rot.UsedAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET access_token = $2, refresh_token = $3, expires_at = $4, refresh_expires_at = $5,
		    last_used_at = COALESCE($6, last_used_at)
		WHERE id = $1 AND is_active AND ($7 = '' OR refresh_token = $7)`,
		id, rot.AccessToken, rot.RefreshToken, rot.ExpiresAt, rot.RefreshExpiresAt, usedAt, rot.PreviousRefreshToken,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// TouchLastUsed sets the session's last-used timestamp.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

// Deactivate marks the session inactive. Deactivating an unknown or inactive session is a no-op.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	return err
}

// DeactivateAllForUser marks every active session of the user inactive and returns how many changed.
func (r *PostgresRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	return r.execCount(ctx, `UPDATE sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID)
}

// DeactivateByAccessToken marks the session holding token inactive. Reports whether a row changed.
func (r *PostgresRepository) DeactivateByAccessToken(ctx context.Context, token string) (bool, error) {
	n, err := r.execCount(ctx, `UPDATE sessions SET is_active = FALSE WHERE access_token = $1 AND is_active`, token)
	return n > 0, err
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.execCount(ctx, `UPDATE sessions SET is_active = FALSE WHERE is_active AND refresh_expires_at <= $1`, now)
}

func (r *PostgresRepository) PurgeStaleInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.execCount(ctx, `
		UPDATE sessions SET is_active = FALSE
		WHERE is_active AND COALESCE(last_used_at, created_at) < $1`, cutoff)
}

func (r *PostgresRepository) PurgeNeverUsed(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.execCount(ctx, `
		UPDATE sessions SET is_active = FALSE
		WHERE is_active AND last_used_at IS NULL AND created_at < $1`, cutoff)
}

// DeleteRetired removes inactive rows whose last activity is older than cutoff.
func (r *PostgresRepository) DeleteRetired(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.execCount(ctx, `
		DELETE FROM sessions
		WHERE NOT is_active AND COALESCE(last_used_at, created_at) < $1`, cutoff)
}

func (r *PostgresRepository) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResolveAccess locks the row holding token and classifies it; an active row that can no
// longer be refreshed is deactivated in the same transaction.
func (r *PostgresRepository) ResolveAccess(ctx context.Context, token string, now time.Time) (*domain.Session, domain.Resolution, error) {
	return r.resolve(ctx, "access_token", token, now, func(s *domain.Session) time.Time { return s.ExpiresAt })
}

// ResolveRefresh is ResolveAccess for the refresh token.
func (r *PostgresRepository) ResolveRefresh(ctx context.Context, token string, now time.Time) (*domain.Session, domain.Resolution, error) {
	return r.resolve(ctx, "refresh_token", token, now, func(s *domain.Session) time.Time { return s.RefreshExpiresAt })
}

// resolve is only called with a fixed column name.
func (r *PostgresRepository) resolve(ctx context.Context, column, token string, now time.Time, expiry func(*domain.Session) time.Time) (*domain.Session, domain.Resolution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.ResolutionNotFound, err
	}
	defer func() { _ = tx.Rollback() }()

	s, err := scanSession(tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE `+column+` = $1 FOR UPDATE`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ResolutionNotFound, nil
		}
		return nil, domain.ResolutionNotFound, err
	}
	res := domain.ResolutionUsable
	switch {
	case !s.IsActive:
		res = domain.ResolutionInactive
	case !now.Before(expiry(s)):
		res = domain.ResolutionExpired
		if now.Before(s.RefreshExpiresAt) {
			break
		}
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET is_active = FALSE WHERE id = $1`, s.ID); err != nil {
			return nil, domain.ResolutionNotFound, err
		}
		s.IsActive = false
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.ResolutionNotFound, err
	}
	return s, res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s                                      domain.Session
		lastUsed                               sql.NullTime
		deviceInfo, deviceName, deviceType, ip sql.NullString
		userAgent                              sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken, &s.ExpiresAt, &s.RefreshExpiresAt,
		&lastUsed, &s.CreatedAt, &s.IsActive, &deviceInfo, &deviceName, &deviceType, &ip, &userAgent)
	if err != nil {
		return nil, err
	}
	s.LastUsedAt = nullTimeToPtr(lastUsed)
	s.DeviceInfo = deviceInfo.String
	s.DeviceName = deviceName.String
	s.DeviceType = deviceType.String
	s.IPAddress = ip.String
	s.UserAgent = userAgent.String
	return &s, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateToken
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
