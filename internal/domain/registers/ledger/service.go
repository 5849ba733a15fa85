package ledger

import (
	"context"
	"fmt"
	"sort"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/pkg/logger"
)

// Service appends and aggregates movement entries.
type Service struct {
	repo     Repository
	statuses StatusResolver
}

// NewService creates a ledger service.
func NewService(repo Repository, statuses StatusResolver) *Service {
	return &Service{repo: repo, statuses: statuses}
}

// Append writes the entries of one confirmation after collapsing duplicates of
// the same key: deltas are summed and the last quantity_after wins. Entries a
// previous confirmation of the same document left on keys it no longer touches
// are removed.
func (s *Service) Append(ctx context.Context, entries []entity.MovementEntry) error {
	collapsed := Collapse(entries)
	if len(collapsed) == 0 {
		return nil
	}
	if err := s.dropStale(ctx, collapsed); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, collapsed); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}
	logger.Debug(ctx, "recorded stock movements",
		"document_type", collapsed[0].DocumentType,
		"document_id", collapsed[0].DocumentID,
		"count", len(collapsed))
	return nil
}

func (s *Service) dropStale(ctx context.Context, fresh []entity.MovementEntry) error {
	refs := make(map[entity.DocumentRef]map[entity.BalanceKey]bool)
	for _, e := range fresh {
		if refs[e.Ref()] == nil {
			refs[e.Ref()] = make(map[entity.BalanceKey]bool)
		}
		refs[e.Ref()][e.Key()] = true
	}
	for ref, keys := range refs {
		existing, err := s.repo.ListByDocument(ctx, ref)
		if err != nil {
			return fmt.Errorf("list document movements: %w", err)
		}
		for _, e := range existing {
			if !keys[e.Key()] {
				if _, err := s.repo.DeleteByDocument(ctx, ref); err != nil {
					return fmt.Errorf("drop stale movements: %w", err)
				}
				break
			}
		}
	}
	return nil
}

// List returns the full history of one key, oldest first, applied or not.
func (s *Service) List(ctx context.Context, warehouseID, itemID id.ID) ([]entity.MovementEntry, error) {
	return s.repo.List(ctx, warehouseID, itemID)
}

// ListByDocument returns the entries of one document.
func (s *Service) ListByDocument(ctx context.Context, ref entity.DocumentRef) ([]entity.MovementEntry, error) {
	return s.repo.ListByDocument(ctx, ref)
}

// DeleteByDocument removes the entries of one document.
func (s *Service) DeleteByDocument(ctx context.Context, ref entity.DocumentRef) (int64, error) {
	return s.repo.DeleteByDocument(ctx, ref)
}

// Sum returns the quantity of one key implied by applied entries.
func (s *Service) Sum(ctx context.Context, warehouseID, itemID id.ID) (types.Quantity, error) {
	entries, err := s.repo.List(ctx, warehouseID, itemID)
	if err != nil {
		return 0, fmt.Errorf("list movements: %w", err)
	}
	applied, _, err := s.Applied(ctx, entries)
	if err != nil {
		return 0, err
	}
	var total types.Quantity
	for _, e := range applied {
		total += e.QuantityDelta
	}
	return total, nil
}

// Applied splits entries into those whose document is currently applied and
// orphans whose document no longer exists. Entries of documents that exist but
// are not applied (reverted to draft, cancelled) are dropped from both.
func (s *Service) Applied(ctx context.Context, entries []entity.MovementEntry) (applied, orphans []entity.MovementEntry, err error) {
	byType := make(map[entity.DocumentType][]id.ID)
	seen := make(map[entity.DocumentRef]bool)
	for _, e := range entries {
		ref := e.Ref()
		if seen[ref] {
			continue
		}
		seen[ref] = true
		byType[ref.Type] = append(byType[ref.Type], ref.ID)
	}

	status := make(map[entity.DocumentRef]entity.Status, len(seen))
	for docType, ids := range byType {
		found, err := s.statuses.Statuses(ctx, docType, ids)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve %s statuses: %w", docType, err)
		}
		for docID, st := range found {
			status[entity.DocumentRef{Type: docType, ID: docID}] = st
		}
	}

	for _, e := range entries {
		st, ok := status[e.Ref()]
		switch {
		case !ok:
			orphans = append(orphans, e)
		case st.IsApplied():
			applied = append(applied, e)
		}
	}
	return applied, orphans, nil
}

// Collapse merges entries sharing (document_type, document_id, warehouse, item)
// and returns them in first-seen order.
func Collapse(entries []entity.MovementEntry) []entity.MovementEntry {
	type key struct {
		ref entity.DocumentRef
		bk  entity.BalanceKey
	}
	index := make(map[key]int, len(entries))
	out := make([]entity.MovementEntry, 0, len(entries))
	for _, e := range entries {
		k := key{ref: e.Ref(), bk: e.Key()}
		if i, ok := index[k]; ok {
			out[i].QuantityDelta += e.QuantityDelta
			out[i].QuantityAfter = e.QuantityAfter
			if e.RecordedAt.After(out[i].RecordedAt) {
				out[i].RecordedAt = e.RecordedAt
			}
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

// SortByTime orders entries oldest first, ties broken by id.
func SortByTime(entries []entity.MovementEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].RecordedAt.Equal(entries[j].RecordedAt) {
			return entries[i].RecordedAt.Before(entries[j].RecordedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
}
