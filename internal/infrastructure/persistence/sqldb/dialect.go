// Package sqldb implements the storage gateway of CARPAS on database/sql.
// The same repositories run against SQLite (modernc.org/sqlite, the default
// single-file deployment) and PostgreSQL (jackc/pgx via its stdlib adapter).
package sqldb

import (
	"strconv"
	"strings"
)

// dialect identifies the SQL dialect behind the gateway.
type dialect string

const (
	// DialectSQLite is the embedded single-file backend.
	DialectSQLite dialect = "sqlite"

	// DialectPostgres is the server backend.
	DialectPostgres dialect = "postgres"
)

// String returns the dialect name.
func (d dialect) String() string {
	return string(d)
}

// driverName returns the database/sql driver name for the dialect.
func (d dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites `?` placeholders into `$n` for PostgreSQL. Queries in this
// package never carry `?` inside string literals, so a plain scan is enough.
func (d dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

// detectDialect classifies a database URL. Anything that is not a PostgreSQL
// URL is treated as a SQLite path: "carpas.db", ":memory:", "file:...".
func detectDialect(url string) dialect {
	lower := strings.ToLower(strings.TrimSpace(url))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// sqliteDSN normalizes a SQLite path into a DSN with the pragmas the gateway
// relies on: foreign keys for cascade semantics and a busy timeout so
// concurrent writers queue instead of failing immediately.
func sqliteDSN(url string) string {
	dsn := strings.TrimSpace(url)
	if dsn == "" {
		dsn = "carpas.db"
	}

	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
