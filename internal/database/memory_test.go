package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leadbook/internal/core"
)

func buyerAt(id, name string, updated time.Time) core.Buyer {
	return core.Buyer{
		ID:           id,
		FullName:     name,
		Phone:        "9876543210",
		City:         core.CityMohali,
		PropertyType: core.PropertyPlot,
		Purpose:      core.PurposeBuy,
		Timeline:     core.TimelineExploring,
		Source:       core.SourceCall,
		Status:       core.StatusNew,
		Tags:         []string{},
		OwnerID:      "agent",
		CreatedAt:    updated,
		UpdatedAt:    updated,
	}
}

func seed(t *testing.T, m *MemoryStore, n int) time.Time {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var buyers []core.Buyer
	for i := 0; i < n; i++ {
		buyers = append(buyers, buyerAt(fmt.Sprintf("b-%02d", i), fmt.Sprintf("Buyer %02d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	_, err := m.CreateBuyers(context.Background(), buyers, nil)
	require.NoError(t, err)
	return base
}

func TestMemoryStore_CreateIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m, 1)

	dup := buyerAt("b-00", "Dup", time.Now())
	fresh := buyerAt("new", "Fresh", time.Now())
	_, err := m.CreateBuyers(ctx, []core.Buyer{fresh, dup}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")

	_, err = m.GetBuyer(ctx, "new")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_FailCreate(t *testing.T) {
	m := NewMemoryStore()
	m.FailCreate = errors.New("disk full")

	_, err := m.CreateBuyers(context.Background(), []core.Buyer{buyerAt("x", "X", time.Now())}, nil)
	require.Error(t, err)

	n, err := m.CountBuyers(context.Background(), core.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m, 1)

	b, err := m.GetBuyer(ctx, "b-00")
	require.NoError(t, err)
	b.Tags = append(b.Tags, "mutated")
	b.FullName = "Mutated"

	again, err := m.GetBuyer(ctx, "b-00")
	require.NoError(t, err)
	assert.Equal(t, "Buyer 00", again.FullName)
	assert.Empty(t, again.Tags)
}

func TestMemoryStore_ListOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m, 12)

	page, err := m.ListBuyers(ctx, core.ListFilter{Limit: 5, Offset: 0})
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, "b-11", page[0].ID, "newest update first")
	assert.Equal(t, "b-07", page[4].ID)

	last, err := m.ListBuyers(ctx, core.ListFilter{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, last, 2)

	past, err := m.ListBuyers(ctx, core.ListFilter{Limit: 5, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMemoryStore_Filters(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now().UTC()

	a := buyerAt("a", "Asha Verma", now)
	a.Email = "asha@example.com"
	a.City = core.CityChandigarh
	b := buyerAt("b", "Ravi Kumar", now)
	b.Phone = "9123456780"
	b.Status = core.StatusVisited
	_, err := m.CreateBuyers(ctx, []core.Buyer{a, b}, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter core.ListFilter
		want   int64
	}{
		{"no filter", core.ListFilter{}, 2},
		{"city", core.ListFilter{City: core.CityChandigarh}, 1},
		{"status", core.ListFilter{Status: core.StatusVisited}, 1},
		{"name case insensitive", core.ListFilter{Search: "ASHA"}, 1},
		{"email", core.ListFilter{Search: "example.com"}, 1},
		{"phone substring", core.ListFilter{Search: "912345"}, 1},
		{"no match", core.ListFilter{Search: "zzz"}, 0},
		{"combined", core.ListFilter{City: core.CityChandigarh, Status: core.StatusVisited}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := m.CountBuyers(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestMemoryStore_UpdateWritesHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m, 1)

	for i := 0; i < 7; i++ {
		_, err := m.UpdateBuyer(ctx, "b-00", func(cur core.Buyer) (core.Buyer, *core.History, error) {
			cur.Notes = fmt.Sprintf("note %d", i)
			h := core.History{ID: fmt.Sprintf("h-%d", i), BuyerID: cur.ID}
			return cur, &h, nil
		})
		require.NoError(t, err)
	}

	history, err := m.ListHistory(ctx, "b-00", 5)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "h-6", history[0].ID, "most recent first")
	assert.Equal(t, "h-2", history[4].ID)
}

func TestMemoryStore_UpdateNoHistoryLeavesBuyer(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m, 1)

	_, err := m.UpdateBuyer(ctx, "b-00", func(cur core.Buyer) (core.Buyer, *core.History, error) {
		cur.FullName = "Ignored"
		return cur, nil, nil
	})
	require.NoError(t, err)

	b, _ := m.GetBuyer(ctx, "b-00")
	assert.Equal(t, "Buyer 00", b.FullName)
}

func TestMemoryStore_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seed(t, m, 1)

	_, err := m.UpdateBuyer(ctx, "missing", func(cur core.Buyer) (core.Buyer, *core.History, error) {
		t.Fatal("fn must not run for a missing buyer")
		return cur, nil, nil
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = m.UpdateBuyer(ctx, "b-00", func(cur core.Buyer) (core.Buyer, *core.History, error) {
		return core.Buyer{}, nil, core.ErrConflict
	})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestMemoryStore_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	b := buyerAt("a", "Asha", time.Now())
	_, err := m.CreateBuyers(ctx, []core.Buyer{b}, []core.History{{ID: "h", BuyerID: "a"}})
	require.NoError(t, err)

	require.NoError(t, m.DeleteBuyer(ctx, "a"))
	history, err := m.ListHistory(ctx, "a", 5)
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.ErrorIs(t, m.DeleteBuyer(ctx, "a"), core.ErrNotFound)
}
