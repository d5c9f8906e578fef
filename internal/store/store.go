// Package store provides durable, owner-scoped persistence for text records.
//
// The durable store is authoritative: every mutation is a single atomic
// statement, and the conditional update/delete paths match on both id and
// owner so a non-owner can neither observe nor change a record's state.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quillmark/text-analyzer/internal/analyzer"
	"github.com/quillmark/text-analyzer/internal/errs"
)

// Record is the persisted unit of content plus its derived analysis.
// Analysis is nil only in the window between creation and the first analysis
// write for the current content.
type Record struct {
	ID        string             `json:"id"`
	OwnerID   string             `json:"ownerId"`
	Content   string             `json:"content"`
	Analysis  *analyzer.Analysis `json:"analysis,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// TextStore persists text records in SQLite.
type TextStore struct {
	db *sql.DB
}

// New creates a TextStore over an opened database handle. The handle is
// shared and released by the caller at shutdown.
func New(db *sql.DB) *TextStore {
	return &TextStore{db: db}
}

// Insert persists a new record with a store-assigned id and no analysis.
func (s *TextStore) Insert(ctx context.Context, content, ownerID string) (*Record, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO texts (id, owner_id, content, analysis, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, ?, ?)`,
		id, ownerID, content, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to create text", err)
	}

	return &Record{
		ID:        id,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FindByID returns the record with the given id.
func (s *TextStore) FindByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, content, analysis, created_at, updated_at
		 FROM texts WHERE id = ?`, id)
	return scanRecord(row, "text not found")
}

// UpdateContentIfOwner atomically replaces content when id and ownerID both
// match, clearing the stored analysis in the same statement so no reader can
// observe new content paired with the old analysis. The not-found and
// wrong-owner cases are deliberately indistinguishable to the caller.
func (s *TextStore) UpdateContentIfOwner(ctx context.Context, id, ownerID, content string) (*Record, error) {
	now := time.Now().UTC().Truncate(time.Second)

	result, err := s.db.ExecContext(ctx,
		`UPDATE texts SET content = ?, analysis = NULL, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		content, now.Unix(), id, ownerID,
	)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to update text", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to update text", err)
	}
	if affected == 0 {
		return nil, errs.New(errs.NotFound, "text not found or unauthorized")
	}

	return s.FindByID(ctx, id)
}

// UpdateAnalysis sets the analysis for id without touching content.
func (s *TextStore) UpdateAnalysis(ctx context.Context, id string, analysis analyzer.Analysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return errs.Wrap(errs.Internal, "failed to encode analysis", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE texts SET analysis = ? WHERE id = ?`, string(payload), id)
	if err != nil {
		return errs.Wrap(errs.Internal, "failed to store analysis", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.Internal, "failed to store analysis", err)
	}
	if affected == 0 {
		return errs.New(errs.NotFound, "text not found")
	}
	return nil
}

// DeleteIfOwner atomically removes the record when id and ownerID both match.
// As with UpdateContentIfOwner, a non-owner cannot distinguish a record they
// do not own from one that does not exist.
func (s *TextStore) DeleteIfOwner(ctx context.Context, id, ownerID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM texts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return errs.Wrap(errs.Internal, "failed to delete text", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.Internal, "failed to delete text", err)
	}
	if affected == 0 {
		return errs.New(errs.NotFound, "text not found or unauthorized")
	}
	return nil
}

func scanRecord(row *sql.Row, notFoundMsg string) (*Record, error) {
	var (
		rec          Record
		analysisJSON sql.NullString
		createdAt    int64
		updatedAt    int64
	)

	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Content, &analysisJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, notFoundMsg)
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to read text", err)
	}

	if analysisJSON.Valid {
		var analysis analyzer.Analysis
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return nil, errs.Wrap(errs.Internal, "failed to decode stored analysis", err)
		}
		rec.Analysis = &analysis
	}

	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &rec, nil
}
