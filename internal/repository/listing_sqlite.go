package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteListingRepository implements ListingRepository using SQLite.
// Thread-safe with WAL mode for concurrent reads.
type SQLiteListingRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteListingRepository creates a new SQLite listing repository.
// dsn is a modernc.org/sqlite data source, e.g. "file:./data/catalog.db?_pragma=journal_mode(WAL)".
func NewSQLiteListingRepository(dsn string, log logger.Logger) (*SQLiteListingRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Info("sqlite catalog initialized", "dsn", dsn)
	return &SQLiteListingRepository{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		sale_price REAL NOT NULL DEFAULT 0,
		sale_status TEXT NOT NULL DEFAULT '',
		longitude REAL NOT NULL DEFAULT 0,
		latitude REAL NOT NULL DEFAULT 0,
		features TEXT NOT NULL DEFAULT '[]',
		images TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(sale_status);
	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);
	`
	_, err := db.Exec(query)
	return err
}

func sqlitePlaceholder(n int) string { return "?" + strconv.Itoa(n) }

const sqliteColumns = `id, name, description, sale_price, sale_status, longitude, latitude, features, images, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteListing(row rowScanner) (*model.Listing, error) {
	var l model.Listing
	var status, features, images, createdAt, updatedAt string
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.SalePrice, &status,
		&l.Longitude, &l.Latitude, &features, &images, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.SaleStatus = model.SaleStatus(status)
	if err := decodeCollections(&l, []byte(features), []byte(images)); err != nil {
		return nil, err
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &l, nil
}

// Create inserts a new listing.
func (r *SQLiteListingRepository) Create(ctx context.Context, l *model.Listing) error {
	features, images, err := encodeCollections(l)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	query := `INSERT INTO listings (` + sqliteColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, l.ID, l.Name, l.Description, l.SalePrice, string(l.SaleStatus),
		l.Longitude, l.Latitude, string(features), string(images),
		l.CreatedAt.UTC().Format(time.RFC3339Nano), l.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

// Get retrieves a listing by ID.
func (r *SQLiteListingRepository) Get(ctx context.Context, id string) (*model.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanSQLiteListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// Update replaces a stored listing.
func (r *SQLiteListingRepository) Update(ctx context.Context, l *model.Listing) (bool, error) {
	features, images, err := encodeCollections(l)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE listings SET
			name = ?, description = ?, sale_price = ?, sale_status = ?,
			longitude = ?, latitude = ?, features = ?, images = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, l.Name, l.Description, l.SalePrice, string(l.SaleStatus),
		l.Longitude, l.Latitude, string(features), string(images),
		l.UpdatedAt.UTC().Format(time.RFC3339Nano), l.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update listing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes listings by ID.
func (r *SQLiteListingRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `DELETE FROM listings WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %w", err)
	}
	return res.RowsAffected()
}

// List returns a page of listings matching the filter.
func (r *SQLiteListingRepository) List(ctx context.Context, filter model.ListingFilter) ([]model.Listing, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	where, args := listingWhere(filter, "LIKE", sqlitePlaceholder)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM listings%s ORDER BY created_at DESC, id LIMIT %s OFFSET %s`,
		sqliteColumns, where, sqlitePlaceholder(n+1), sqlitePlaceholder(n+2))
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// GetStats returns statistics about the catalog database.
func (r *SQLiteListingRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	rows, err := r.db.QueryContext(ctx, "SELECT sale_status, COUNT(*) FROM listings GROUP BY sale_status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var total int64
	byStatus := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		if status == "" {
			status = "unset"
		}
		byStatus[status] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats["total_listings"] = total
	stats["by_status"] = byStatus

	var lastUpdate sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM listings").Scan(&lastUpdate); err == nil && lastUpdate.Valid {
		stats["last_update"] = lastUpdate.String
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteListingRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteListingRepository implements ListingRepository
var _ ListingRepository = (*SQLiteListingRepository)(nil)
