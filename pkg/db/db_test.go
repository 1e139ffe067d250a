package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialect(t *testing.T) {
	for _, kind := range []string{"postgres", "mysql", "sqlite", "sqlite3", " Postgres "} {
		d, err := Dialect(Config{Type: kind, Name: "royalty"})
		require.NoError(t, err, kind)
		assert.NotNil(t, d)
	}

	_, err := Dialect(Config{Type: "oracle"})
	require.Error(t, err)
}

func TestOpen_Memory(t *testing.T) {
	conn, err := Open(Config{Type: "sqlite", Name: ":memory:", MaxOpenConn: 1})
	require.NoError(t, err)

	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: royalty_statements.checksum")))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsDuplicateKeyErr(nil))
}

func TestUniqueViolation_Constraint(t *testing.T) {
	name, ok := UniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "ux_statements_advance_applied"})
	assert.True(t, ok)
	assert.Equal(t, "ux_statements_advance_applied", name)

	name, ok = UniqueViolation(errors.New("Error 1062 (23000): Duplicate entry '7:2024-01-01' for key 'ux_statements_checksum'"))
	assert.True(t, ok)
	assert.Equal(t, "ux_statements_checksum", name)

	name, ok = UniqueViolation(errors.New("UNIQUE constraint failed: statements.period_key"))
	assert.True(t, ok)
	assert.Equal(t, "statements.period_key", name)

	_, ok = UniqueViolation(errors.New("connection reset"))
	assert.False(t, ok)
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsSerializationFailure(nil))
}

func TestUniqueViolation_SQLiteCodeSuffix(t *testing.T) {
	name, ok := UniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: statements.checksum (2067)"))
	assert.True(t, ok)
	assert.Equal(t, "statements.checksum", name)
	assert.True(t, IsLockTimeout(&pgconn.PgError{Code: "55P03"}))
}
