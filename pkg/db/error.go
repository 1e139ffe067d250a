package db

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation       = "23505"
	pgSerializationFailure  = "40001"
	pgLockNotAvailable      = "55P03"
	mysqlDuplicateEntryCode = "Error 1062"
	sqliteUniquePrefix      = "UNIQUE constraint failed: "
)

var mysqlDuplicateKey = regexp.MustCompile(`for key '([^']+)'`)

// IsDuplicateKeyErr reports a unique index violation on any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	_, ok := UniqueViolation(err)
	return ok
}

// UniqueViolation reports whether err is a unique index violation and, when
// the driver exposes it, which constraint fired. Postgres and MySQL return the
// index name; SQLite returns the "table.column" list instead.
func UniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName, pgErr.Code == pgUniqueViolation
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, mysqlDuplicateEntryCode):
		if m := mysqlDuplicateKey.FindStringSubmatch(msg); m != nil {
			return m[1], true
		}
		return "", true
	case strings.Contains(msg, sqliteUniquePrefix):
		_, cols, _ := strings.Cut(msg, sqliteUniquePrefix)
		cols, _, _ = strings.Cut(cols, " (")
		return strings.TrimSpace(cols), true
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "", true
	}
	return "", false
}

// IsLockTimeout reports a postgres lock_timeout or NOWAIT failure.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}

// IsSerializationFailure reports a postgres serialization conflict; the
// transaction can be retried as a whole.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure
}
