// Package texts orchestrates the durable store, the volatile cache, and the
// analysis pipeline for text documents.
//
// Consistency model: the store is authoritative; the cache is populated
// lazily on read misses and invalidated eagerly on every mutation, always
// before new analysis is computed, so a stale cached record can never outlive
// the write that made it stale.
package texts

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/quillmark/text-analyzer/internal/analyzer"
	"github.com/quillmark/text-analyzer/internal/cache"
	"github.com/quillmark/text-analyzer/internal/errs"
	"github.com/quillmark/text-analyzer/internal/obs"
	"github.com/quillmark/text-analyzer/internal/store"
)

// CacheKey returns the cache key for a text id.
func CacheKey(id string) string {
	return "text:" + id
}

// Service implements the text document operations.
type Service struct {
	store *store.TextStore
	cache *cache.Cache
}

// NewService creates the service over its two storage layers.
func NewService(st *store.TextStore, ca *cache.Cache) *Service {
	return &Service{store: st, cache: ca}
}

// Create persists new content owned by ownerID, computes its analysis, and
// returns the complete record. The record is durable before analysis runs;
// analysis failures after the insert would leave a valid record whose
// analysis is computed on a later write.
func (s *Service) Create(ctx context.Context, ownerID, content string) (*store.Record, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	rec, err := s.store.Insert(ctx, content, ownerID)
	if err != nil {
		return nil, err
	}

	analysis := analyzer.Analyze(content)
	if err := s.store.UpdateAnalysis(ctx, rec.ID, analysis); err != nil {
		return nil, err
	}
	rec.Analysis = &analysis

	obs.From(ctx).Info("text created", "text_id", rec.ID, "owner_id", ownerID)
	return rec, nil
}

// Read returns the record for id, serving from the cache when possible and
// falling back to the store. Cache hits are returned as-is without
// revalidation; a miss repopulates the cache from the store.
func (s *Service) Read(ctx context.Context, id string) (*store.Record, error) {
	key := CacheKey(id)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var rec store.Record
		if err := json.Unmarshal([]byte(cached), &rec); err == nil {
			return &rec, nil
		}
		// Undecodable entries are treated as misses; the store copy below
		// overwrites them.
		obs.From(ctx).Warn("discarding corrupt cache entry", "key", key)
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(rec); err == nil {
		s.cache.Set(ctx, key, string(payload))
	}
	return rec, nil
}

// Update replaces the content of a record owned by ownerID, invalidates the
// cached copy, and recomputes the analysis. Invalidation happens before
// reanalysis: between the two steps readers see the new content from the
// store, never the old record from the cache.
func (s *Service) Update(ctx context.Context, id, ownerID, content string) (*store.Record, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	rec, err := s.store.UpdateContentIfOwner(ctx, id, ownerID, content)
	if err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, CacheKey(id))

	analysis := analyzer.Analyze(content)
	if err := s.store.UpdateAnalysis(ctx, id, analysis); err != nil {
		return nil, err
	}
	rec.Analysis = &analysis

	obs.From(ctx).Info("text updated", "text_id", id, "owner_id", ownerID)
	return rec, nil
}

// Delete removes a record owned by ownerID and its cached copy.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.store.DeleteIfOwner(ctx, id, ownerID); err != nil {
		return err
	}

	s.cache.Delete(ctx, CacheKey(id))

	obs.From(ctx).Info("text deleted", "text_id", id, "owner_id", ownerID)
	return nil
}

// GetAnalysis returns the computed statistics for id. Analysis is nil only
// when a crash interrupted the create/update pipeline; callers surface that
// as an absent body rather than an error.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*analyzer.Analysis, error) {
	rec, err := s.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Analysis, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errs.New(errs.InvalidArgument, "content must not be empty")
	}
	return nil
}
