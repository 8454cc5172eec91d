// Package sync keeps each profile's local progress store consistent
// with a remote Postgres copy. Outbound writes are debounced full
// snapshots; inbound updates arrive push-style over LISTEN/NOTIFY and
// are merged by timestamp.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

// ErrProfileNotFound is returned when the remote side has no document
// for the requested profile.
var ErrProfileNotFound = errors.New("profile not found")

// notifyChannel is the Postgres NOTIFY channel carrying profile-change
// events. Payload format: "<profileID>|<senderID>".
const notifyChannel = "progress_sync"

// Remote abstracts the backing store of synced progress documents.
type Remote interface {
	Load(ctx context.Context, profileID string) (*entities.ProgressDocument, error)
	Save(ctx context.Context, profileID string, doc *entities.ProgressDocument, senderID string) error
	Listen(ctx context.Context, onChange func(profileID, senderID string)) error
}

// PostgresRemote stores one JSONB document per profile and broadcasts
// changes over LISTEN/NOTIFY.
type PostgresRemote struct {
	pool *pgxpool.Pool
}

// NewPostgresRemote creates a remote backed by the given pool.
func NewPostgresRemote(pool *pgxpool.Pool) *PostgresRemote {
	return &PostgresRemote{pool: pool}
}

// Init creates the profiles table if it does not exist yet.
func (r *PostgresRemote) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS progress_profiles (
			profile_id    TEXT PRIMARY KEY,
			doc           JSONB NOT NULL,
			updated_at_ms BIGINT NOT NULL
		)
	`

	_, err := r.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Load fetches the profile's document. Returns ErrProfileNotFound when
// the profile has never been written.
func (r *PostgresRemote) Load(ctx context.Context, profileID string) (*entities.ProgressDocument, error) {
	query := `SELECT doc FROM progress_profiles WHERE profile_id = $1`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, profileID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var doc entities.ProgressDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal profile doc: %w", err)
	}
	return &doc, nil
}

// Save upserts the full snapshot for a profile and notifies listeners.
// The sender id travels in the notification payload so clients can
// drop echoes of their own writes.
func (r *PostgresRemote) Save(ctx context.Context, profileID string, doc *entities.ProgressDocument, senderID string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal profile doc: %w", err)
	}

	query := `
		INSERT INTO progress_profiles (profile_id, doc, updated_at_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile_id)
		DO UPDATE SET doc = excluded.doc, updated_at_ms = excluded.updated_at_ms
	`

	_, err = r.pool.Exec(ctx, query, profileID, raw, doc.Timestamp)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	payload := profileID + "|" + senderID
	_, err = r.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, payload)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// Listen blocks on a dedicated connection waiting for profile-change
// notifications until the context is cancelled.
func (r *PostgresRemote) Listen(ctx context.Context, onChange func(profileID, senderID string)) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		profileID, senderID, ok := strings.Cut(n.Payload, "|")
		if !ok {
			continue
		}
		onChange(profileID, senderID)
	}
}
