package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cuidame-health/backend/internal/session/domain"
)

var sessionCols = []string{"id", "user_id", "access_token", "refresh_token", "expires_at", "refresh_expires_at",
	"last_used_at", "created_at", "is_active", "device_info", "device_name", "device_type", "ip_address", "user_agent"}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func sessionRow(id string, active bool, expires time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(sessionCols).AddRow(
		id, "u1", "acc-"+id, "ref-"+id, expires, expires.Add(30*24*time.Hour),
		nil, t0, active, "Chrome on Mac", nil, nil, "10.0.0.1", "ua/1.0",
	)
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := newSession("s1", "u1", t0)
	s.IPAddress = "10.0.0.1"

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("s1", "u1", "acc-s1", "ref-s1", s.ExpiresAt, s.RefreshExpiresAt,
			sql.NullTime{}, t0, true, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sql.NullString{String: "10.0.0.1", Valid: true}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO sessions`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), newSession("s1", "u1", t0))
	assert.ErrorIs(t, err, domain.ErrDuplicateToken)
}

func TestPostgresRepository_FindByAccessToken(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM sessions WHERE access_token = \$1`).
		WithArgs("acc-s1").
		WillReturnRows(sessionRow("s1", true, t0.Add(time.Hour)))

	s, err := repo.FindByAccessToken(context.Background(), "acc-s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "Chrome on Mac", s.DeviceInfo)
	assert.Empty(t, s.DeviceName)
	assert.Nil(t, s.LastUsedAt)
}

func TestPostgresRepository_FindNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM sessions WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	s, err := repo.FindByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestPostgresRepository_FindActiveByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows(sessionCols).
		AddRow("a", "u1", "acc-a", "ref-a", t0, t0, nil, t0, true, nil, nil, nil, nil, nil).
		AddRow("b", "u1", "acc-b", "ref-b", t0, t0, t0, t0, true, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`ORDER BY created_at ASC, id ASC`).WithArgs("u1").WillReturnRows(rows)

	list, err := repo.FindActiveByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.NotNil(t, list[1].LastUsedAt)
}

func TestPostgresRepository_UpdateTokensLostRace(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE sessions\s+SET access_token`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTokens(context.Background(), "s1", domain.Rotation{
		PreviousRefreshToken: "ref-old", AccessToken: "a", RefreshToken: "r",
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPostgresRepository_SweepCounts(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	mock.ExpectExec(`refresh_expires_at <= \$1`).WithArgs(t0).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`COALESCE\(last_used_at, created_at\) < \$1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`last_used_at IS NULL AND created_at < \$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM sessions`).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.PurgeExpired(ctx, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = repo.PurgeStaleInactive(ctx, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.PurgeNeverUsed(ctx, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	n, err = repo.DeleteRetired(ctx, t0)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ResolveAccessExpired(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE access_token = \$1 FOR UPDATE`).
		WithArgs("acc-s1").
		WillReturnRows(sessionRow("s1", true, t0))
	mock.ExpectExec(`UPDATE sessions SET is_active = FALSE WHERE id = \$1`).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, res, err := repo.ResolveAccess(context.Background(), "acc-s1", t0.Add(31*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionExpired, res)
	assert.False(t, s.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ResolveAccessExpiredStillRefreshable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE access_token = \$1 FOR UPDATE`).
		WithArgs("acc-s1").
		WillReturnRows(sessionRow("s1", true, t0))
	mock.ExpectCommit()

	s, res, err := repo.ResolveAccess(context.Background(), "acc-s1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionExpired, res)
	assert.True(t, s.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ResolveRefreshUsable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE refresh_token = \$1 FOR UPDATE`).
		WithArgs("ref-s1").
		WillReturnRows(sessionRow("s1", true, t0))
	mock.ExpectCommit()

	_, res, err := repo.ResolveRefresh(context.Background(), "ref-s1", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.ResolutionUsable, res)
}

func TestPostgresRepository_ResolveNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	s, res, err := repo.ResolveAccess(context.Background(), "nope", t0)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, domain.ResolutionNotFound, res)
}

func TestPostgresRepository_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")
	mock.ExpectExec(`UPDATE sessions SET is_active = FALSE WHERE user_id`).WillReturnError(boom)

	_, err := repo.DeactivateAllForUser(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
}
