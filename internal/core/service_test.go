package core_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/database"
)

var agent = core.Actor{ID: "agent-1", Email: "agent@example.com"}

// fakeClock returns a strictly increasing time on every call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newService(t *testing.T, cfg core.ServiceConfig) (*core.Service, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	if cfg.Clock == nil {
		cfg.Clock = newFakeClock().Now
	}
	return core.NewService(store, cfg), store
}

func rawBuyer(name, phone string) core.RawBuyer {
	return core.RawBuyer{
		"fullName":     name,
		"phone":        phone,
		"city":         "Chandigarh",
		"propertyType": "Plot",
		"purpose":      "Buy",
		"timeline":     "EXPLORING",
		"source":       "Website",
	}
}

const importHeader = "fullName,email,phone,city,propertyType,bhk,purpose,budgetMin,budgetMax,timeline,source,notes,tags,status\n"

func csvRows(n int) string {
	var sb strings.Builder
	sb.WriteString(importHeader)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Buyer %d,,98765432%02d,Mohali,Apartment,2,Buy,100,200,0-3m,Call,,\"a,b\",\n", i, i%100)
	}
	return sb.String()
}

func TestCreateBuyer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	b, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, agent.ID, b.OwnerID)
	assert.Equal(t, core.StatusNew, b.Status)
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)

	detail, err := svc.GetBuyer(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 1)
	assert.Equal(t, core.CreatedMarker(), detail.History[0].Diff)
	assert.Equal(t, agent.ID, detail.History[0].ChangedBy)
}

func TestCreateBuyer_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, core.ServiceConfig{})

	raw := rawBuyer("A", "12")
	_, err := svc.CreateBuyer(ctx, agent, raw)
	require.ErrorIs(t, err, core.ErrValidation)

	n, _ := store.CountBuyers(ctx, core.ListFilter{})
	assert.Zero(t, n)
}

func TestCreateBuyer_RequiresActor(t *testing.T) {
	svc, _ := newService(t, core.ServiceConfig{})
	_, err := svc.CreateBuyer(context.Background(), core.Actor{}, rawBuyer("Asha Verma", "9876543210"))
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestUpdateBuyer_RecordsDiff(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	b, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)

	editor := core.Actor{ID: "agent-2"}
	updated, err := svc.UpdateBuyer(ctx, editor, b.ID, core.RawBuyer{
		"status":    "Qualified",
		"budgetMin": json.Number("1500000"),
		"fullName":  "Asha Verma",
	}, &b.UpdatedAt)
	require.NoError(t, err)

	assert.Equal(t, core.StatusQualified, updated.Status)
	assert.True(t, updated.UpdatedAt.After(b.UpdatedAt))
	assert.Equal(t, b.CreatedAt, updated.CreatedAt)
	assert.Equal(t, agent.ID, updated.OwnerID, "owner is not reassigned")

	detail, err := svc.GetBuyer(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 2)
	latest := detail.History[0]
	assert.Equal(t, editor.ID, latest.ChangedBy)
	assert.Equal(t, core.Diff{
		"status":    core.Change{"New", "Qualified"},
		"budgetMin": core.Change{nil, int64(1500000)},
	}, latest.Diff)
}

func TestUpdateBuyer_NoChangeWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	b, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)

	same, err := svc.UpdateBuyer(ctx, agent, b.ID, core.RawBuyer{"fullName": "Asha Verma", "city": "Chandigarh"}, nil)
	require.NoError(t, err)
	assert.Equal(t, b.UpdatedAt, same.UpdatedAt)

	detail, err := svc.GetBuyer(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, detail.History, 1)
}

func TestUpdateBuyer_Conflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	b, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)
	stale := b.UpdatedAt

	_, err = svc.UpdateBuyer(ctx, agent, b.ID, core.RawBuyer{"notes": "first"}, &stale)
	require.NoError(t, err)

	_, err = svc.UpdateBuyer(ctx, agent, b.ID, core.RawBuyer{"notes": "second"}, &stale)
	require.ErrorIs(t, err, core.ErrConflict)

	detail, err := svc.GetBuyer(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", detail.Notes)
	assert.Len(t, detail.History, 2)
}

func TestUpdateBuyer_ClearsOptional(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	raw := rawBuyer("Asha Verma", "9876543210")
	raw["email"] = "asha@example.com"
	raw["notes"] = "call after 6"
	b, err := svc.CreateBuyer(ctx, agent, raw)
	require.NoError(t, err)

	updated, err := svc.UpdateBuyer(ctx, agent, b.ID, core.RawBuyer{"email": "", "notes": nil}, nil)
	require.NoError(t, err)
	assert.Empty(t, updated.Email)
	assert.Empty(t, updated.Notes)

	detail, _ := svc.GetBuyer(ctx, b.ID)
	assert.Equal(t, core.Change{"asha@example.com", nil}, detail.History[0].Diff["email"])
}

func TestUpdateBuyer_RevalidatesMergedRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	b, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)

	// Plot -> Apartment without a bhk breaks the cross-field rule.
	_, err = svc.UpdateBuyer(ctx, agent, b.ID, core.RawBuyer{"propertyType": "Apartment"}, nil)
	require.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "BHK required for Apartment/Villa")
}

func TestUpdateBuyer_NotFound(t *testing.T) {
	svc, _ := newService(t, core.ServiceConfig{})
	_, err := svc.UpdateBuyer(context.Background(), agent, "missing", core.RawBuyer{"notes": "x"}, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteBuyer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	b, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBuyer(ctx, agent, b.ID))
	_, err = svc.GetBuyer(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteBuyer(ctx, agent, b.ID), core.ErrNotFound)
}

func TestImportBuyers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	res, err := svc.ImportBuyers(ctx, agent, strings.NewReader(csvRows(3)))
	require.NoError(t, err)
	assert.Equal(t, 3, res.InsertedCount)

	list, err := svc.ListBuyers(ctx, core.ListQuery{})
	require.NoError(t, err)
	require.Len(t, list.Buyers, 3)
	for _, b := range list.Buyers {
		assert.Equal(t, core.BHK2, b.BHK)
		assert.Equal(t, core.TimelineZeroToThree, b.Timeline)
		assert.Equal(t, []string{"a", "b"}, b.Tags)
		assert.Equal(t, agent.ID, b.OwnerID)

		detail, err := svc.GetBuyer(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, detail.History, 1)
		assert.Equal(t, core.CreatedMarker(), detail.History[0].Diff)
	}
}

func TestImportBuyers_RejectsWholeFile(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, core.ServiceConfig{})

	lines := strings.Split(strings.TrimSuffix(csvRows(6), "\n"), "\n")
	// Line 6 of the file is the fifth data row.
	lines[5] = strings.Replace(lines[5], "98765432", "12", 1)
	lines[3] = strings.Replace(lines[3], ",Mohali,", ",Delhi,", 1)

	_, err := svc.ImportBuyers(ctx, agent, strings.NewReader(strings.Join(lines, "\n")))
	require.ErrorIs(t, err, core.ErrImportRejected)

	var ie *core.ImportError
	require.True(t, errors.As(err, &ie))
	require.Len(t, ie.Rows, 2)
	assert.Equal(t, 4, ie.Rows[0].Row)
	assert.Contains(t, ie.Rows[0].Message, "City must be one of")
	assert.Equal(t, 6, ie.Rows[1].Row)
	assert.Equal(t, "Phone must be 10-15 digits", ie.Rows[1].Message)

	n, _ := store.CountBuyers(ctx, core.ListFilter{})
	assert.Zero(t, n, "nothing is written when any row fails")
}

func TestImportBuyers_StrayQuoteStillReportsRows(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, core.ServiceConfig{})

	lines := strings.Split(strings.TrimSuffix(csvRows(3), "\n"), "\n")
	lines[2] = strings.Replace(lines[2], ",Call,,", `,Call,Wants 2" pipes,`, 1)
	lines[3] = strings.Replace(lines[3], "98765432", "1", 1)

	_, err := svc.ImportBuyers(ctx, agent, strings.NewReader(strings.Join(lines, "\n")))

	var ie *core.ImportError
	require.True(t, errors.As(err, &ie), "got %v", err)
	require.Len(t, ie.Rows, 1)
	assert.Equal(t, 4, ie.Rows[0].Row)
	assert.Equal(t, "Phone must be 10-15 digits", ie.Rows[0].Message)

	lines[3] = strings.Replace(lines[3], ",1", ",98765432", 1)
	res, err := svc.ImportBuyers(ctx, agent, strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, 3, res.InsertedCount)

	page, err := store.ListBuyers(ctx, core.ListFilter{Search: "Buyer 1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, `Wants 2" pipes`, page[0].Notes)
}

func TestImportBuyers_Capacity(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, core.ServiceConfig{})

	_, err := svc.ImportBuyers(ctx, agent, strings.NewReader(csvRows(201)))
	require.ErrorIs(t, err, core.ErrCapacity)
	assert.Equal(t, "Max 200 rows allowed", err.Error())

	n, _ := store.CountBuyers(ctx, core.ListFilter{})
	assert.Zero(t, n)

	res, err := svc.ImportBuyers(ctx, agent, strings.NewReader(csvRows(200)))
	require.NoError(t, err)
	assert.Equal(t, 200, res.InsertedCount)
}

func TestImportBuyers_EmptyFile(t *testing.T) {
	svc, _ := newService(t, core.ServiceConfig{})

	res, err := svc.ImportBuyers(context.Background(), agent, strings.NewReader(importHeader))
	require.NoError(t, err)
	assert.Zero(t, res.InsertedCount)
}

func TestImportBuyers_StoreFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, core.ServiceConfig{})
	store.FailCreate = errors.New("connection reset")

	_, err := svc.ImportBuyers(ctx, agent, strings.NewReader(csvRows(2)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestImportBuyers_LimiterBusy(t *testing.T) {
	limiter := core.NewImportLimiter(1, 10*time.Millisecond)
	svc, _ := newService(t, core.ServiceConfig{Limiter: limiter})

	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	_, err := svc.ImportBuyers(context.Background(), agent, strings.NewReader(csvRows(1)))
	assert.ErrorIs(t, err, core.ErrTooManyImports)
}

func TestPreviewImport(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, core.ServiceConfig{})

	doc := importHeader +
		"Asha Verma,,9876543210,Mohali,Plot,,Buy,,,Exploring,Call,,,\n" +
		"X,,9876543210,Mohali,Plot,,Buy,,,Exploring,Call,,,\n"

	res, err := svc.PreviewImport(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.ValidRows)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)

	n, _ := store.CountBuyers(ctx, core.ListFilter{})
	assert.Zero(t, n)
}

func TestListBuyers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	for i := 0; i < 12; i++ {
		raw := rawBuyer(fmt.Sprintf("Buyer %02d", i), fmt.Sprintf("98765432%02d", i))
		if i%3 == 0 {
			raw["city"] = "Mohali"
		}
		_, err := svc.CreateBuyer(ctx, agent, raw)
		require.NoError(t, err)
	}

	first, err := svc.ListBuyers(ctx, core.ListQuery{Page: 1})
	require.NoError(t, err)
	assert.Len(t, first.Buyers, 10)
	assert.Equal(t, int64(12), first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)
	assert.Equal(t, "Buyer 11", first.Buyers[0].FullName)

	second, err := svc.ListBuyers(ctx, core.ListQuery{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Buyers, 2)
	assert.False(t, second.HasNext)
	assert.True(t, second.HasPrev)

	mohali, err := svc.ListBuyers(ctx, core.ListQuery{City: "Mohali"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), mohali.Total)

	ignored, err := svc.ListBuyers(ctx, core.ListQuery{City: "Atlantis", Page: -3})
	require.NoError(t, err)
	assert.Equal(t, int64(12), ignored.Total, "unknown enum filters are dropped")
	assert.Equal(t, 1, ignored.Page)

	search, err := svc.ListBuyers(ctx, core.ListQuery{Search: "  buyer 05 "})
	require.NoError(t, err)
	require.Len(t, search.Buyers, 1)

	empty, err := svc.ListBuyers(ctx, core.ListQuery{Search: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, empty.Buyers)
	assert.Zero(t, empty.TotalPages)
}

func TestGetBuyer_RecentHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	b, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		_, err := svc.UpdateBuyer(ctx, agent, b.ID, core.RawBuyer{"notes": fmt.Sprintf("visit %d", i)}, nil)
		require.NoError(t, err)
	}

	detail, err := svc.GetBuyer(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, core.RecentHistoryLimit)
	assert.Equal(t, core.Change{"visit 4", "visit 5"}, detail.History[0].Diff["notes"])
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, core.ServiceConfig{})

	_, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)
	_, err = svc.CreateBuyer(ctx, agent, rawBuyer("Ravi Kumar", "9123456780"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, &buf, core.FormatCSV))
	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "Ravi Kumar,"), "most recently updated first")
}

func TestParseExportFormat(t *testing.T) {
	f, err := core.ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, core.FormatCSV, f)
	assert.Equal(t, "buyers_export.csv", f.Filename())

	f, err = core.ParseExportFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, "buyers_export.xlsx", f.Filename())

	_, err = core.ParseExportFormat("pdf")
	assert.ErrorIs(t, err, core.ErrValidation)
}

type memArchiver struct {
	key, contentType string
	body             []byte
}

func (a *memArchiver) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	a.key, a.contentType, a.body = key, contentType, data
	return "mem://" + key, nil
}

func TestArchiveExport(t *testing.T) {
	ctx := context.Background()
	arch := &memArchiver{}
	clock := func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) }
	svc, _ := newService(t, core.ServiceConfig{Archiver: arch, Clock: clock})

	_, err := svc.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)

	res, err := svc.ArchiveExport(ctx, agent, core.FormatCSV)
	require.NoError(t, err)

	wantKey := fmt.Sprintf("exports/2025/06/01/buyers-%d.csv", clock().Unix())
	assert.Equal(t, wantKey, res.Key)
	assert.Equal(t, "mem://"+wantKey, res.Location)
	assert.Equal(t, "text/csv", arch.contentType)
	assert.Equal(t, len(arch.body), res.Bytes)
	assert.Contains(t, string(arch.body), "Asha Verma")
}

func TestArchiveExport_Disabled(t *testing.T) {
	svc, _ := newService(t, core.ServiceConfig{})
	_, err := svc.ArchiveExport(context.Background(), agent, core.FormatCSV)
	assert.ErrorIs(t, err, core.ErrArchiveDisabled)
}

func TestExportThenImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newService(t, core.ServiceConfig{})

	rich := core.RawBuyer{
		"fullName":     "Meera \"Mimi\" Nair",
		"email":        "meera@example.com",
		"phone":        "919876543210",
		"city":         "Panchkula",
		"propertyType": "Villa",
		"bhk":          "BHK4",
		"purpose":      "Buy",
		"budgetMin":    json.Number("9000000"),
		"budgetMax":    json.Number("12000000"),
		"timeline":     "MORE_THAN_SIX_MONTHS",
		"source":       "Referral",
		"status":       "Negotiation",
		"notes":        "Wants a corner plot, east facing\nCall after 6pm",
		"tags":         []any{"nri", "vip"},
	}
	_, err := src.CreateBuyer(ctx, agent, rich)
	require.NoError(t, err)
	_, err = src.CreateBuyer(ctx, agent, rawBuyer("Asha Verma", "9876543210"))
	require.NoError(t, err)
	spaced := rawBuyer("Kabir Sethi", "9876501234")
	spaced["tags"] = []any{" sector 5 ", "", "hot lead", "  "}
	_, err = src.CreateBuyer(ctx, agent, spaced)
	require.NoError(t, err)

	var exported bytes.Buffer
	require.NoError(t, src.Export(ctx, &exported, core.FormatCSV))

	dst, dstStore := newService(t, core.ServiceConfig{})
	res, err := dst.ImportBuyers(ctx, agent, bytes.NewReader(exported.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 3, res.InsertedCount)

	before, err := src.ListBuyers(ctx, core.ListQuery{})
	require.NoError(t, err)
	after, err := dstStore.AllBuyers(ctx)
	require.NoError(t, err)

	byName := func(buyers []core.Buyer) map[string]core.Buyer {
		out := map[string]core.Buyer{}
		for _, b := range buyers {
			b.ID, b.OwnerID = "", ""
			b.CreatedAt, b.UpdatedAt = time.Time{}, time.Time{}
			out[b.FullName] = b
		}
		return out
	}
	assert.Equal(t, byName(before.Buyers), byName(after))
	assert.Equal(t, []string{"sector 5", "hot lead"}, byName(after)["Kabir Sethi"].Tags)
}

func TestCreateBuyer_RejectsTagSeparators(t *testing.T) {
	tests := []struct {
		name string
		tags any
	}{
		{name: "comma", tags: []any{"north, sector 5"}},
		{name: "pipe", tags: []string{"vip", "a|b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store := newService(t, core.ServiceConfig{})

			raw := rawBuyer("Asha Verma", "9876543210")
			raw["tags"] = tt.tags
			_, err := svc.CreateBuyer(ctx, agent, raw)
			require.ErrorIs(t, err, core.ErrValidation)

			var ve core.ValidationErrors
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "tags", ve[0].Field)

			n, _ := store.CountBuyers(ctx, core.ListFilter{})
			assert.Zero(t, n)
		})
	}
}
