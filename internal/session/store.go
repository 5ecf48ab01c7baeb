// Package session persists conversation transcripts in PostgreSQL.
//
// A session is an opaque string identifier; it comes into existence the
// first time messages are appended to it, so callers never need an
// explicit create step. Messages are stored as genkit ai.Message JSON in
// sequence order, which keeps tool calls and tool results in the
// transcript exactly as the model produced them.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vistaar-ai/vistaar/internal/log"
)

// Store manages transcript persistence. Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// NewID returns a fresh opaque session identifier.
func NewID() string {
	return uuid.NewString()
}

// Info describes a stored session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// History returns the session's transcript oldest first. An unknown
// session yields an empty transcript, not an error: a farmer's first
// question arrives before the session row exists.
func (s *Store) History(ctx context.Context, sessionID string) ([]*ai.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySessionID
	}

	rows, err := s.pool.Query(ctx,
		`SELECT content FROM session_messages
		 WHERE session_id = $1
		 ORDER BY sequence_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []*ai.Message
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		var msg ai.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return msgs, nil
}

// AppendMessages appends a turn's messages to the transcript in one
// transaction: either every message lands or none do. The session row is
// created on first append and locked for the duration so concurrent
// appends to the same session serialize and sequence numbers stay dense.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs []*ai.Message) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrEmptySessionID
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The upsert takes the row lock, serializing appends per session.
	if _, err := tx.Exec(ctx,
		`INSERT INTO sessions (id) VALUES ($1)
		 ON CONFLICT (id) DO UPDATE SET updated_at = now()`, sessionID); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	var next int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM session_messages
		 WHERE session_id = $1`, sessionID).Scan(&next); err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	for i, msg := range msgs {
		content, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO session_messages (session_id, sequence_number, role, content)
			 VALUES ($1, $2, $3, $4)`,
			sessionID, next+i, string(msg.Role), content); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	s.logger.Debug("messages appended",
		"session_id", sessionID,
		"count", len(msgs))
	return nil
}

// Get returns session metadata.
func (s *Store) Get(ctx context.Context, sessionID string) (Info, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Info{}, ErrEmptySessionID
	}

	var info Info
	err := s.pool.QueryRow(ctx,
		`SELECT s.id, s.created_at, s.updated_at, COUNT(m.id)
		 FROM sessions s
		 LEFT JOIN session_messages m ON m.session_id = s.id
		 WHERE s.id = $1
		 GROUP BY s.id`, sessionID).
		Scan(&info.ID, &info.CreatedAt, &info.UpdatedAt, &info.Messages)
	if errors.Is(err, pgx.ErrNoRows) {
		return Info{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return Info{}, fmt.Errorf("get session: %w", err)
	}
	return info, nil
}

// Delete removes a session and its transcript.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrEmptySessionID
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.logger.Info("session deleted", "session_id", sessionID)
	return nil
}
