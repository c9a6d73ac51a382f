package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps the database connection together with the SQL dialect in use.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to the shape database and applies the migrations.
// For sqlite, dsn is a file path; the parent directory is created.
// MySQL DSNs need parseTime=true.
func Open(driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	source := dsn
	if driver == DriverSQLite {
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		source = dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite only supports one writer; a single connection prevents SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver reports the driver name the DB was opened with.
func (db *DB) Driver() string {
	return db.dialect.name
}

// Ping checks the connection; used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// q rewrites the ?-placeholders of query for the active dialect.
func (db *DB) q(query string) string {
	if !db.dialect.numbered {
		return query
	}
	var b strings.Builder
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

type dialect struct {
	name     string
	numbered bool // $1 placeholders
	key      string
	text     string
	real     string
	integer  string
	time     string
}

var dialects = map[string]dialect{
	DriverSQLite:   {name: DriverSQLite, key: "TEXT", text: "TEXT", real: "REAL", integer: "INTEGER", time: "DATETIME"},
	DriverPostgres: {name: DriverPostgres, numbered: true, key: "TEXT", text: "TEXT", real: "DOUBLE PRECISION", integer: "INTEGER", time: "TIMESTAMPTZ"},
	DriverMySQL:    {name: DriverMySQL, key: "VARCHAR(64)", text: "TEXT", real: "DOUBLE", integer: "INTEGER", time: "DATETIME(6)"},
}

func (db *DB) migrate() error {
	d := db.dialect
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS shapes (
			id ` + d.key + ` PRIMARY KEY,
			type ` + d.key + ` NOT NULL,
			x_offset ` + d.real + ` NOT NULL DEFAULT 0,
			y_offset ` + d.real + ` NOT NULL DEFAULT 0,
			width ` + d.real + ` NOT NULL DEFAULT 0,
			height ` + d.real + ` NOT NULL DEFAULT 0,
			min_width ` + d.real + ` NOT NULL DEFAULT 0,
			min_height ` + d.real + ` NOT NULL DEFAULT 0,
			max_width ` + d.real + `,
			max_height ` + d.real + `,
			z_index ` + d.integer + ` NOT NULL DEFAULT 0,
			is_instance_child ` + d.integer + ` NOT NULL DEFAULT 0,
			page_id ` + d.key + `,
			title ` + d.text + ` NOT NULL,
			description ` + d.text + ` NOT NULL,
			subtype ` + d.text + ` NOT NULL,
			content ` + d.text + ` NOT NULL,
			style_json ` + d.text + ` NOT NULL,
			position ` + d.integer + ` NOT NULL DEFAULT 0,
			created_at ` + d.time + ` NOT NULL,
			updated_at ` + d.time + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS multipage_paths (
			id ` + d.key + ` PRIMARY KEY,
			shape_start_id ` + d.key + ` NOT NULL,
			shape_start_handle_type ` + d.key + ` NOT NULL,
			shape_end_id ` + d.key + ` NOT NULL,
			shape_end_handle_type ` + d.key + ` NOT NULL,
			direction ` + d.key + ` NOT NULL,
			page_exclude_json ` + d.text + ` NOT NULL,
			created_at ` + d.time + ` NOT NULL,
			updated_at ` + d.time + ` NOT NULL
		)`,
		`CREATE INDEX idx_shapes_page ON shapes(page_id)`,
		`CREATE UNIQUE INDEX idx_paths_start ON multipage_paths(shape_start_id)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			// CREATE INDEX IF NOT EXISTS is not portable to MySQL
			if strings.HasPrefix(m, "CREATE") && strings.Contains(m, "INDEX") && alreadyExists(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", strings.Fields(m)[:3], err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}
