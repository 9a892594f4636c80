// Package testutil provides a throwaway SQLite database carrying the same
// tables as the MySQL schema, plus row fixtures for repository and handler
// tests.
package testutil

import (
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/k2-expeditions/internal/database"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// OpenDB creates a file-backed SQLite database under t.TempDir() with
// foreign keys enforced.  The pool is limited to a single connection, so
// code under test must not query through the pool while holding a
// transaction.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "k2.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range database.Statements(sqliteSchema) {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "schema: %s", firstLine(stmt))
	}
	return db
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// InsertUser adds a user with the given role and returns its id.  The
// password hash is a placeholder; tests that log in hash their own.
func InsertUser(t testing.TB, db *sql.DB, email, role string) uint64 {
	t.Helper()
	return insert(t, db,
		"INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, ?)",
		email, "x", strings.Split(email, "@")[0], role)
}

// InsertExpedition adds an active expedition priced at basePriceCents.
func InsertExpedition(t testing.TB, db *sql.DB, slug string, basePriceCents uint64) uint64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO expeditions (title, slug, description, category, difficulty, altitude, duration,
		                          base_price_cents, location, gallery, max_group_size, min_group_size)
		 VALUES (?, ?, ?, 'TREKKING_PEAKS', 'ADVANCED', 5150, 18, ?, 'Karakoram', '[]', 12, 4)`,
		"Expedition "+slug, slug, "Trip "+slug, basePriceCents)
}

// InsertItinerary adds one itinerary day to an expedition.
func InsertItinerary(t testing.TB, db *sql.DB, expeditionID uint64, day int, title string) uint64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO itineraries (expedition_id, day_number, title, description, activities, sort_order)
		 VALUES (?, ?, ?, '', '[]', ?)`, expeditionID, day, title, day)
}

// InsertProduct adds an in-stock product.
func InsertProduct(t testing.TB, db *sql.DB, slug string) uint64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO products (name, slug, description, category, price_cents, images)
		 VALUES (?, ?, 'fixture', 'BOOTS', 65000, '[]')`, "Product "+slug, slug)
}

// InsertGear links a product to an expedition.
func InsertGear(t testing.TB, db *sql.DB, expeditionID, productID uint64) uint64 {
	t.Helper()
	return insert(t, db,
		"INSERT INTO expedition_gear (expedition_id, product_id, quantity, required) VALUES (?, ?, 1, 1)",
		expeditionID, productID)
}

// InsertPost adds a community post owned by userID.
func InsertPost(t testing.TB, db *sql.DB, userID uint64, title string, published bool) uint64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO community_posts (user_id, title, content, images, tags, is_published)
		 VALUES (?, ?, 'story', '[]', '[]', ?)`, userID, title, published)
}

// InsertSummit adds a summit record with the given status.
func InsertSummit(t testing.TB, db *sql.DB, userID, expeditionID uint64, status string) uint64 {
	t.Helper()
	return insert(t, db,
		`INSERT INTO summit_records (user_id, expedition_id, status, summit_date, altitude, photos)
		 VALUES (?, ?, ?, '2024-06-15 00:00:00', 5150, '[]')`, userID, expeditionID, status)
}

// Count returns SELECT COUNT(*) for the given table and optional WHERE clause.
func Count(t testing.TB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if where != "" {
		q += " WHERE " + where
	}
	var n int
	require.NoError(t, db.QueryRow(q, args...).Scan(&n))
	return n
}

func insert(t testing.TB, db *sql.DB, q string, args ...any) uint64 {
	t.Helper()
	res, err := db.Exec(q, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}
