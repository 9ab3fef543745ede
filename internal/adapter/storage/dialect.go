package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Dialect captures the differences between the supported SQL backends. Queries
// are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name string
	// DriverName is the database/sql driver registered for the dialect.
	DriverName string

	numbered   bool   // $1, $2 placeholders
	returning  bool   // INSERT ... RETURNING id instead of LastInsertId
	lockClause string // row lock suffix for SELECT
	// snapshotTx is nil where the driver cannot start read-only transactions
	snapshotTx *sql.TxOptions
	// singleWriter serializes every transaction on one connection
	singleWriter bool
}

var (
	MySQL = Dialect{
		Name:       "mysql",
		DriverName: "mysql",
		lockClause: " FOR UPDATE",
		snapshotTx: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	}
	Postgres = Dialect{
		Name:       "postgres",
		DriverName: "pgx",
		numbered:   true,
		returning:  true,
		lockClause: " FOR UPDATE",
		snapshotTx: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	}
	SQLite = Dialect{
		Name:         "sqlite",
		DriverName:   "sqlite",
		singleWriter: true,
	}
)

// DialectFor resolves a configured driver name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d Dialect) schema() (string, error) {
	data, err := schemaFS.ReadFile("schema/" + d.Name + ".sql")
	if err != nil {
		return "", fmt.Errorf("read %s schema: %w", d.Name, err)
	}
	return string(data), nil
}

// splitStatements breaks a schema file into individual statements.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// SQLiteDSN builds a DSN for a database file with foreign keys on, a busy
// timeout, and times written in a form SQLite can compare as text.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}
