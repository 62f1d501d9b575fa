package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/JonMunkholm/leadbook/internal/metrics"
)

// CreateBuyer validates raw and stores it as a new buyer owned by actor.
// A creation entry is written to the buyer's history in the same transaction.
func (s *Service) CreateBuyer(ctx context.Context, actor Actor, raw RawBuyer) (Buyer, error) {
	if err := requireActor(actor); err != nil {
		return Buyer{}, err
	}

	b, err := ValidateBuyer(raw)
	if err != nil {
		return Buyer{}, err
	}

	now := s.now()
	b.ID = uuid.NewString()
	b.OwnerID = actor.ID
	b.CreatedAt = now
	b.UpdatedAt = now

	created, err := s.store.CreateBuyers(ctx, []Buyer{b}, []History{NewHistory(b.ID, actor, CreatedMarker(), now)})
	if err != nil {
		return Buyer{}, fmt.Errorf("create buyer: %w", err)
	}

	metrics.BuyerMutations.WithLabelValues("create").Inc()
	metrics.HistoryEntries.Inc()
	logging.WithFields(ctx, "buyer_id", b.ID, "actor", actor.ID).Info("buyer created")

	return created[0], nil
}

// UpdateBuyer applies raw on top of the stored buyer. Only keys present in
// raw are compared; a present key with an empty value clears an optional
// field. When expectedUpdatedAt is set and no longer matches the stored
// value, ErrConflict is returned and nothing is written. An update that
// changes nothing writes neither the buyer nor a history entry.
func (s *Service) UpdateBuyer(ctx context.Context, actor Actor, id string, raw RawBuyer, expectedUpdatedAt *time.Time) (Buyer, error) {
	if err := requireActor(actor); err != nil {
		return Buyer{}, err
	}

	var fields []string
	for key := range raw {
		if isBuyerField(key) {
			fields = append(fields, key)
		}
	}

	var changed Diff
	updated, err := s.store.UpdateBuyer(ctx, id, func(current Buyer) (Buyer, *History, error) {
		if expectedUpdatedAt != nil && !current.UpdatedAt.Equal(expectedUpdatedAt.Truncate(time.Microsecond)) {
			return Buyer{}, nil, ErrConflict
		}

		merged := buyerToRaw(current)
		for _, key := range fields {
			merged[key] = raw[key]
		}

		next, err := ValidateBuyer(merged)
		if err != nil {
			return Buyer{}, nil, err
		}

		diff := DiffBuyers(current, next, fields)
		if len(diff) == 0 {
			return current, nil, nil
		}

		now := s.now()
		next.ID = current.ID
		next.OwnerID = current.OwnerID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = now

		h := NewHistory(current.ID, actor, diff, now)
		changed = diff
		return next, &h, nil
	})
	if err != nil {
		return Buyer{}, fmt.Errorf("update buyer %s: %w", id, err)
	}

	log := logging.WithFields(ctx, "buyer_id", id, "actor", actor.ID)
	if changed == nil {
		log.Debug("buyer update had no changes")
		return updated, nil
	}

	metrics.BuyerMutations.WithLabelValues("update").Inc()
	metrics.HistoryEntries.Inc()
	log.Info("buyer updated", "fields", len(changed))
	return updated, nil
}

// DeleteBuyer removes a buyer and, through the store, its history.
func (s *Service) DeleteBuyer(ctx context.Context, actor Actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.store.DeleteBuyer(ctx, id); err != nil {
		return fmt.Errorf("delete buyer %s: %w", id, err)
	}

	metrics.BuyerMutations.WithLabelValues("delete").Inc()
	logging.WithFields(ctx, "buyer_id", id, "actor", actor.ID).Info("buyer deleted")
	return nil
}
