// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Session/message/product persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/marketbot/haggle-gateway/internal/session"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLite store at the given path. The schema is
// created if missing, parent directories are created if needed, and the
// product catalog is seeded when empty.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.seedProducts(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding products: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price INTEGER NOT NULL,
			condition TEXT NOT NULL DEFAULT '',
			seller_name TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			target_price INTEGER NOT NULL,
			max_budget INTEGER NOT NULL,
			approach TEXT NOT NULL,
			status TEXT NOT NULL,
			final_price INTEGER,
			outcome TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			ended_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			sender_type TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session_id
			ON messages(session_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// seedProducts inserts the demo catalog when the products table is empty.
func (s *SQLiteStore) seedProducts() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("counting products: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range DemoProducts() {
		_, err := s.db.Exec(`
			INSERT INTO products (id, title, description, price, condition, seller_name, location, image_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.Title, p.Description, p.Price, p.Condition, p.SellerName, p.Location, p.ImageURL)
		if err != nil {
			return fmt.Errorf("inserting product %s: %w", p.ID, err)
		}
	}

	s.logger.Info("seeded product catalog", "count", len(DemoProducts()))
	return nil
}

// SaveSession upserts the session row and inserts any messages not yet
// persisted. Messages are immutable, so re-inserting existing IDs is a no-op;
// either the whole save applies or none of it does.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *session.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var finalPrice sql.NullInt64
	if sess.FinalPrice != nil {
		finalPrice = sql.NullInt64{Int64: int64(*sess.FinalPrice), Valid: true}
	}
	var endedAt sql.NullString
	if sess.EndedAt != nil {
		endedAt = sql.NullString{String: sess.EndedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, product_id, target_price, max_budget, approach, status, final_price, outcome, created_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			final_price = excluded.final_price,
			outcome = excluded.outcome,
			ended_at = excluded.ended_at
	`,
		sess.ID,
		sess.Params.ProductID,
		sess.Params.TargetPrice,
		sess.Params.MaxBudget,
		string(sess.Params.Approach),
		string(sess.Status),
		finalPrice,
		sess.Outcome,
		sess.CreatedAt.UTC().Format(time.RFC3339),
		endedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	for _, msg := range sess.Messages {
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO messages (id, session_id, sender, content, sender_type, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			msg.ID,
			msg.SessionID,
			msg.Sender,
			msg.Content,
			msg.SenderType,
			msg.Timestamp.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("inserting message %s: %w", msg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session save: %w", err)
	}
	return nil
}

// LoadSession returns a persisted session with its full history in append
// order, or ErrNotFound.
func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	var sess session.Session
	var finalPrice sql.NullInt64
	var createdAtStr string
	var endedAtStr sql.NullString
	var approach string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, target_price, max_budget, approach, status, final_price, outcome, created_at, ended_at
		FROM sessions
		WHERE id = ?
	`, id).Scan(
		&sess.ID,
		&sess.Params.ProductID,
		&sess.Params.TargetPrice,
		&sess.Params.MaxBudget,
		&approach,
		&sess.Status,
		&finalPrice,
		&sess.Outcome,
		&createdAtStr,
		&endedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	sess.Params.Approach = session.Approach(approach)
	if finalPrice.Valid {
		fp := int(finalPrice.Int64)
		sess.FinalPrice = &fp
	}
	sess.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if endedAtStr.Valid {
		endedAt, err := time.Parse(time.RFC3339, endedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		sess.EndedAt = &endedAt
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sender, content, sender_type, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg session.Message
		var tsStr string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.SenderType, &tsStr); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Timestamp, err = time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message timestamp: %w", err)
		}
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return &sess, nil
}

// ListProducts returns the full product catalog.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]*Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, price, condition, seller_name, location, image_url
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Condition, &p.SellerName, &p.Location, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

// GetProduct returns one product by ID, or ErrNotFound.
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, price, condition, seller_name, location, image_url
		FROM products
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Condition, &p.SellerName, &p.Location, &p.ImageURL)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying product: %w", err)
	}
	return &p, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
