package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported dialect names.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Dialect captures the handful of SQL differences the repositories care
// about.  Queries are written with "?" placeholders and rebound per dialect.
type Dialect struct {
	Name string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DialectMySQL:
		return Dialect{Name: DialectMySQL}, nil
	case DialectPostgres, "postgresql", "pgx":
		return Dialect{Name: DialectPostgres}, nil
	case DialectSQLite, "sqlite3":
		return Dialect{Name: DialectSQLite}, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d.Name {
	case DialectPostgres:
		return "pgx"
	case DialectSQLite:
		return "sqlite"
	}
	return "mysql"
}

// Rebind converts "?" placeholders to the dialect's positional form.
func (d Dialect) Rebind(q string) string {
	if d.Name != DialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// ForUpdate is appended to a SELECT to take an exclusive row lock held until
// the transaction ends.  SQLite has no row locks; its pool runs a single
// connection so the whole transaction is already exclusive.
func (d Dialect) ForUpdate() string {
	if d.Name == DialectSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// OnConflictDoNothing turns an INSERT into insert-if-absent for the given
// unique key columns.  An existing row is left untouched and the statement
// reports zero affected rows.
func (d Dialect) OnConflictDoNothing(keyCols ...string) string {
	if d.Name == DialectMySQL {
		return " ON DUPLICATE KEY UPDATE id = id"
	}
	return " ON CONFLICT (" + strings.Join(keyCols, ", ") + ") DO NOTHING"
}

// IsUniqueViolation reports whether err was raised by a unique index.
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
