package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/talenthub/internal/common"
	"github.com/dmitrijs2005/talenthub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectQuery = `(?s)^SELECT\s+id,\s*user_id,\s*token,\s*expires_at,\s*revoked,\s*ip_address,\s*user_agent,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1$`

var tokenCols = []string{"id", "user_id", "token", "expires_at", "revoked", "ip_address", "user_agent", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func strPtr(s string) *string { return &s }

func TestInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*token,\s*expires_at,\s*ip_address,\s*user_agent\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id,\s*created_at$`

	expires := time.Now().Add(time.Hour)
	created := time.Now()
	mock.ExpectQuery(q).
		WithArgs("u1", "tok123", expires, "10.0.0.1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("rt1", created))

	got, err := repo.Insert(context.Background(), &models.RefreshToken{
		UserID:    "u1",
		Token:     "tok123",
		ExpiresAt: expires,
		IPAddress: strPtr("10.0.0.1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "rt1", got.ID)
	assert.Equal(t, created, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+refresh_tokens`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Insert(context.Background(), &models.RefreshToken{UserID: "u1", Token: "t"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByToken_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(10 * time.Minute)
	created := time.Now()
	mock.ExpectQuery(selectQuery).
		WithArgs("tok123").
		WillReturnRows(sqlmock.NewRows(tokenCols).
			AddRow("rt1", "u1", "tok123", expires, false, "10.0.0.1", nil, created))

	got, err := repo.FindByToken(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, "rt1", got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.ExpiresAt.Equal(expires))
	assert.False(t, got.Revoked)
	require.NotNil(t, got.IPAddress)
	assert.Equal(t, "10.0.0.1", *got.IPAddress)
	assert.Nil(t, got.UserAgent)
}

func TestFindByToken_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByToken_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).
		WithArgs("tok123").
		WillReturnError(errors.New("db err"))

	_, err := repo.FindByToken(context.Background(), "tok123")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	q := `(?s)^UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s+AND\s+revoked\s*=\s*FALSE$`

	tests := []struct {
		name     string
		affected int64
		execErr  error
		want     bool
		wantErr  bool
	}{
		{name: "first revoke wins", affected: 1, want: true},
		{name: "already revoked", affected: 0, want: false},
		{name: "db error", execErr: errors.New("db down"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			exp := mock.ExpectExec(q).WithArgs("rt1")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			got, err := repo.Revoke(context.Background(), "rt1")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeleteExpiredOrRevoked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := `(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+revoked\s*=\s*TRUE\s+OR\s+expires_at\s*<=\s*\$1$`
	mock.ExpectExec(q).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectExec(q).WithArgs(now).WillReturnError(errors.New("locked"))

	n, err := repo.DeleteExpiredOrRevoked(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = repo.DeleteExpiredOrRevoked(context.Background(), now)
	require.ErrorContains(t, err, "locked")
}
