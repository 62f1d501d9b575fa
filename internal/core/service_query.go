package core

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Filter builds the store filter for q. Enum filters that are not a known
// value are dropped rather than rejected. Pages below 1 are treated as 1.
func (s *Service) Filter(q ListQuery) (ListFilter, int) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	f := ListFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  s.pageSize,
		Offset: (page - 1) * s.pageSize,
	}
	if containsExact(Cities, q.City) {
		f.City = City(q.City)
	}
	if containsExact(PropertyTypes, q.PropertyType) {
		f.PropertyType = PropertyType(q.PropertyType)
	}
	if containsExact(Statuses, q.Status) {
		f.Status = Status(q.Status)
	}
	if containsExact(Timelines, q.Timeline) {
		f.Timeline = Timeline(q.Timeline)
	}
	return f, page
}

// ListBuyers returns one page of buyers, newest update first, plus the
// total number of matches. The page and the count are fetched concurrently.
func (s *Service) ListBuyers(ctx context.Context, q ListQuery) (ListResult, error) {
	filter, page := s.Filter(q)

	var (
		buyers []Buyer
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buyers, err = s.store.ListBuyers(gctx, filter)
		if err != nil {
			return fmt.Errorf("list buyers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.store.CountBuyers(gctx, filter)
		if err != nil {
			return fmt.Errorf("count buyers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ListResult{}, err
	}

	if buyers == nil {
		buyers = []Buyer{}
	}
	totalPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	return ListResult{
		Buyers:     buyers,
		Total:      total,
		Page:       page,
		PageSize:   s.pageSize,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}, nil
}

// GetBuyer returns a buyer with its most recent history entries.
func (s *Service) GetBuyer(ctx context.Context, id string) (BuyerDetail, error) {
	b, err := s.store.GetBuyer(ctx, id)
	if err != nil {
		return BuyerDetail{}, fmt.Errorf("get buyer %s: %w", id, err)
	}
	history, err := s.store.ListHistory(ctx, id, RecentHistoryLimit)
	if err != nil {
		return BuyerDetail{}, fmt.Errorf("history for %s: %w", id, err)
	}
	if history == nil {
		history = []History{}
	}
	return BuyerDetail{Buyer: b, History: history}, nil
}
