package persistence

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/msomdec/password-validator/internal/persistence/migrations"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures what differs between storage engines.
type dialect struct {
	name    migrations.Dialect
	driver  string
	noLimit string
	// session runs once on every connection a Context acquires.
	session           []string
	rebind            func(query string) string
	isUniqueViolation func(err error) bool
	// memoryDSN reports whether dsn names a private in-memory database and,
	// if so, returns a DSN every pooled connection can share.
	memoryDSN func(dsn string) (string, bool)
}

var dialects = map[string]*dialect{
	ProviderSQLite: {
		name:    migrations.SQLite,
		driver:  "sqlite",
		noLimit: "-1",
		session: []string{
			"PRAGMA busy_timeout=5000",
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys=ON",
		},
		rebind:            func(query string) string { return query },
		isUniqueViolation: isSQLiteUniqueViolation,
		memoryDSN:         sqliteMemoryDSN,
	},
	ProviderPostgres: {
		name:              migrations.Postgres,
		driver:            "pgx",
		noLimit:           "ALL",
		rebind:            rebindDollar,
		isUniqueViolation: isPostgresUniqueViolation,
	},
}

// rebindDollar rewrites ? placeholders to $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqliteMemoryDSN rewrites ":memory:" and other unshared in-memory DSNs to a
// uniquely named shared-cache URI. Without it each pooled connection would
// open its own empty database.
func sqliteMemoryDSN(dsn string) (string, bool) {
	memory := dsn == ":memory:" ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
	if !memory {
		return dsn, false
	}
	if strings.Contains(dsn, "cache=shared") && !strings.HasPrefix(dsn, "file::memory:") {
		return dsn, true
	}
	return "file:pv-" + uuid.NewString() + "?mode=memory&cache=shared", true
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
