package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = repo.Create(context.Background(), "dupe@example.com", "hunter22", "CUSTOMER", 4)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNormalizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\?").
		WithArgs("rider@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at",
		}).AddRow(3, "rider@example.com", "$2a$10$hash", "CUSTOMER", true, now, now))

	u, err := repo.GetByEmail(context.Background(), "  Rider@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), u.ID)
	assert.Equal(t, "rider@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRefreshRejectsRevokedAndExpired(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name      string
		expiresAt time.Time
		revokedAt interface{}
	}{
		{"revoked", now.Add(time.Hour), now.Add(-time.Minute)},
		{"expired", now.Add(-time.Minute), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			repo := NewTokenRepo(db)

			mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
				WithArgs("somehash").
				WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
					AddRow(5, tc.expiresAt, tc.revokedAt))

			_, err = repo.ValidateRefresh(context.Background(), "somehash")
			assert.ErrorIs(t, err, ErrRefreshInvalid)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestValidateRefreshUnknownHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}))

	_, err = repo.ValidateRefresh(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRefreshInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
