package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/docs-agent/backend/internal/storage/models"
	"github.com/docs-agent/backend/pkg/logger"
)

type Client struct {
	db   *sql.DB
	path string
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db, path: dbPath}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingestions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		raw_chars INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		endpoint_count INTEGER NOT NULL,
		curl_count INTEGER NOT NULL,
		base_url TEXT,
		degraded INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ingestions_created ON ingestions(created_at);

	CREATE TABLE IF NOT EXISTS endpoints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ingestion_id TEXT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		summary TEXT,
		auth_hint INTEGER DEFAULT 0,
		has_curl INTEGER DEFAULT 0,
		tags TEXT,
		source TEXT,
		FOREIGN KEY (ingestion_id) REFERENCES ingestions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_endpoints_ingestion ON endpoints(ingestion_id);
	CREATE INDEX IF NOT EXISTS idx_endpoints_method ON endpoints(method);

	CREATE TABLE IF NOT EXISTS ask_history (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		question TEXT NOT NULL,
		intent TEXT,
		response_type TEXT,
		response TEXT,
		memory_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ask_session ON ask_history(session_id);
	CREATE INDEX IF NOT EXISTS idx_ask_created ON ask_history(created_at);

	CREATE TABLE IF NOT EXISTS session_turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON session_turns(session_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertIngestion(ing *models.Ingestion) error {
	query := `
		INSERT INTO ingestions (id, title, raw_chars, chunk_count, endpoint_count, curl_count, base_url, degraded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			raw_chars = excluded.raw_chars,
			chunk_count = excluded.chunk_count,
			endpoint_count = excluded.endpoint_count,
			curl_count = excluded.curl_count,
			base_url = excluded.base_url,
			degraded = excluded.degraded,
			created_at = excluded.created_at
	`

	degraded := 0
	if ing.Degraded {
		degraded = 1
	}

	_, err := c.db.Exec(
		query,
		ing.ID,
		ing.Title,
		ing.RawChars,
		ing.ChunkCount,
		ing.EndpointCount,
		ing.CurlCount,
		ing.BaseURL,
		degraded,
		ing.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert ingestion: %w", err)
	}

	logger.Debug("Ingestion recorded", zap.String("ingestion_id", ing.ID), zap.String("title", ing.Title))
	return nil
}

func (c *Client) LatestIngestion() (*models.Ingestion, error) {
	query := `
		SELECT id, title, raw_chars, chunk_count, endpoint_count, curl_count, base_url, degraded, created_at
		FROM ingestions
		ORDER BY created_at DESC
		LIMIT 1
	`

	var ing models.Ingestion
	var degraded int
	var createdAt int64

	err := c.db.QueryRow(query).Scan(
		&ing.ID,
		&ing.Title,
		&ing.RawChars,
		&ing.ChunkCount,
		&ing.EndpointCount,
		&ing.CurlCount,
		&ing.BaseURL,
		&degraded,
		&createdAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest ingestion: %w", err)
	}

	ing.Degraded = degraded != 0
	ing.CreatedAt = time.Unix(createdAt, 0)

	return &ing, nil
}

// ReplaceEndpoints swaps the endpoint catalog for an ingestion in one
// transaction so readers never see a partial catalog.
func (c *Client) ReplaceEndpoints(ingestionID string, endpoints []models.EndpointRecord) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM endpoints WHERE ingestion_id = ?`, ingestionID)
	if err != nil {
		return fmt.Errorf("failed to clear endpoints: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO endpoints (ingestion_id, method, path, summary, auth_hint, has_curl, tags, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare endpoint insert: %w", err)
	}
	defer stmt.Close()

	for _, ep := range endpoints {
		authHint := 0
		if ep.AuthHint {
			authHint = 1
		}
		hasCurl := 0
		if ep.HasCurl {
			hasCurl = 1
		}
		_, err = stmt.Exec(ingestionID, ep.Method, ep.Path, ep.Summary, authHint, hasCurl, ep.Tags, ep.Source)
		if err != nil {
			return fmt.Errorf("failed to insert endpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit endpoints: %w", err)
	}

	logger.Debug("Endpoint catalog replaced",
		zap.String("ingestion_id", ingestionID),
		zap.Int("count", len(endpoints)),
	)
	return nil
}

func (c *Client) GetEndpoints(ingestionID string) ([]models.EndpointRecord, error) {
	query := `
		SELECT id, ingestion_id, method, path, summary, auth_hint, has_curl, tags, source
		FROM endpoints
		WHERE ingestion_id = ?
		ORDER BY path, method
	`

	rows, err := c.db.Query(query, ingestionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get endpoints: %w", err)
	}
	defer rows.Close()

	var records []models.EndpointRecord
	for rows.Next() {
		var ep models.EndpointRecord
		var authHint, hasCurl int
		err := rows.Scan(&ep.ID, &ep.IngestionID, &ep.Method, &ep.Path, &ep.Summary, &authHint, &hasCurl, &ep.Tags, &ep.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		ep.AuthHint = authHint != 0
		ep.HasCurl = hasCurl != 0
		records = append(records, ep)
	}

	return records, rows.Err()
}

func (c *Client) InsertAskRecord(record *models.AskRecord) error {
	query := `
		INSERT INTO ask_history (id, session_id, question, intent, response_type, response, memory_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.SessionID,
		record.Question,
		record.Intent,
		record.ResponseType,
		record.Response,
		record.MemoryCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert ask record: %w", err)
	}

	logger.Info("Question recorded",
		zap.String("ask_id", record.ID),
		zap.String("intent", record.Intent),
		zap.Int("latency_ms", record.LatencyMS),
	)

	return nil
}

func (c *Client) GetAskHistory(sessionID string, limit int) ([]models.AskRecord, error) {
	query := `
		SELECT id, session_id, question, intent, response_type, response, memory_count, latency_ms, created_at
		FROM ask_history
		WHERE session_id = ? OR ? = ''
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ask history: %w", err)
	}
	defer rows.Close()

	var records []models.AskRecord
	for rows.Next() {
		var r models.AskRecord
		var createdAt int64
		err := rows.Scan(&r.ID, &r.SessionID, &r.Question, &r.Intent, &r.ResponseType, &r.Response, &r.MemoryCount, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ask record: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) InsertSessionTurn(turn *models.SessionTurn) error {
	query := `INSERT INTO session_turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(query, turn.SessionID, turn.Role, turn.Content, turn.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert session turn: %w", err)
	}

	return nil
}

// GetSessionTurns returns the persisted transcript for a session,
// oldest first. An empty sessionID returns turns across all sessions.
func (c *Client) GetSessionTurns(sessionID string, limit int) ([]models.SessionTurn, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM session_turns
		WHERE session_id = ? OR ? = ''
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get session turns: %w", err)
	}
	defer rows.Close()

	var turns []models.SessionTurn
	for rows.Next() {
		var t models.SessionTurn
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan session turn: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}

	return turns, rows.Err()
}

// ClearSessionTurns drops the persisted transcript for a session. An
// empty sessionID drops every session's turns.
func (c *Client) ClearSessionTurns(sessionID string) error {
	_, err := c.db.Exec(`DELETE FROM session_turns WHERE session_id = ? OR ? = ''`, sessionID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session turns: %w", err)
	}
	return nil
}

// DBSizeMB reports the database file size. Best effort: 0 when the
// file cannot be stat'd (e.g. in-memory databases).
func (c *Client) DBSizeMB() float64 {
	info, err := os.Stat(c.path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}
