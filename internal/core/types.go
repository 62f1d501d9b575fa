package core

import (
	"context"
	"time"
)

// City is one of the served cities.
type City string

const (
	CityChandigarh City = "Chandigarh"
	CityMohali     City = "Mohali"
	CityZirakpur   City = "Zirakpur"
	CityPanchkula  City = "Panchkula"
	CityOther      City = "Other"
)

// PropertyType classifies the property a buyer is looking for.
type PropertyType string

const (
	PropertyApartment PropertyType = "Apartment"
	PropertyVilla     PropertyType = "Villa"
	PropertyPlot      PropertyType = "Plot"
	PropertyOffice    PropertyType = "Office"
	PropertyRetail    PropertyType = "Retail"
)

// Residential reports whether the property type is a residential unit
// that needs a room count.
func (p PropertyType) Residential() bool {
	return p == PropertyApartment || p == PropertyVilla
}

// BHK is the bedroom-hall-kitchen classification. The zero value means "not set".
type BHK string

const (
	BHKStudio BHK = "Studio"
	BHK1      BHK = "BHK1"
	BHK2      BHK = "BHK2"
	BHK3      BHK = "BHK3"
	BHK4      BHK = "BHK4"
)

// Purpose is whether the lead wants to buy or rent.
type Purpose string

const (
	PurposeBuy  Purpose = "Buy"
	PurposeRent Purpose = "Rent"
)

// Timeline is the buyer's stated urgency.
type Timeline string

const (
	TimelineZeroToThree Timeline = "ZERO_TO_THREE_MONTHS"
	TimelineThreeToSix  Timeline = "THREE_TO_SIX_MONTHS"
	TimelineMoreThanSix Timeline = "MORE_THAN_SIX_MONTHS"
	TimelineExploring   Timeline = "EXPLORING"
)

// Source is where the lead came from.
type Source string

const (
	SourceWebsite  Source = "Website"
	SourceReferral Source = "Referral"
	SourceWalkIn   Source = "Walk-in"
	SourceCall     Source = "Call"
	SourceOther    Source = "Other"
)

// Status is the pipeline stage of a lead.
type Status string

const (
	StatusNew         Status = "New"
	StatusQualified   Status = "Qualified"
	StatusContacted   Status = "Contacted"
	StatusVisited     Status = "Visited"
	StatusNegotiation Status = "Negotiation"
	StatusConverted   Status = "Converted"
	StatusDropped     Status = "Dropped"
)

// Enumerations in display order. Used by the validator, list filters and exports.
var (
	Cities        = []string{"Chandigarh", "Mohali", "Zirakpur", "Panchkula", "Other"}
	PropertyTypes = []string{"Apartment", "Villa", "Plot", "Office", "Retail"}
	BHKs          = []string{"Studio", "BHK1", "BHK2", "BHK3", "BHK4"}
	Purposes      = []string{"Buy", "Rent"}
	Timelines     = []string{"ZERO_TO_THREE_MONTHS", "THREE_TO_SIX_MONTHS", "MORE_THAN_SIX_MONTHS", "EXPLORING"}
	Sources       = []string{"Website", "Referral", "Walk-in", "Call", "Other"}
	Statuses      = []string{"New", "Qualified", "Contacted", "Visited", "Negotiation", "Converted", "Dropped"}
)

// Buyer is a prospective property buyer or tenant.
// Optional string fields use "" for "not provided".
type Buyer struct {
	ID           string       `json:"id"`
	FullName     string       `json:"fullName"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone"`
	City         City         `json:"city"`
	PropertyType PropertyType `json:"propertyType"`
	BHK          BHK          `json:"bhk,omitempty"`
	Purpose      Purpose      `json:"purpose"`
	BudgetMin    *int64       `json:"budgetMin,omitempty"`
	BudgetMax    *int64       `json:"budgetMax,omitempty"`
	Timeline     Timeline     `json:"timeline"`
	Source       Source       `json:"source"`
	Status       Status       `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags"`
	OwnerID      string       `json:"ownerId"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Change is an [old, new] pair. It marshals as a two element JSON array.
type Change [2]any

// Diff maps a field name to its change.
type Diff map[string]Change

// CreatedMarker is the diff recorded when a buyer is first stored.
func CreatedMarker() Diff {
	return Diff{"created": Change{nil, true}}
}

// History is an immutable audit entry for a buyer.
type History struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyerId"`
	ChangedBy string    `json:"changedBy"`
	Diff      Diff      `json:"diff"`
	CreatedAt time.Time `json:"createdAt"`
}

// BuyerDetail is a buyer together with its most recent history.
type BuyerDetail struct {
	Buyer
	History []History `json:"history"`
}

// Actor identifies who performs a mutation. It is supplied by the
// authentication layer and attributed on every write.
type Actor struct {
	ID    string
	Email string
}

// RawBuyer is an untyped field mapping as received from a request body
// or a CSV row. Values may be string, json.Number, numeric types,
// []string, []any or nil.
type RawBuyer map[string]any

// ListQuery selects a page of buyers.
type ListQuery struct {
	Page         int
	City         string
	PropertyType string
	Status       string
	Timeline     string
	Search       string
}

// ListFilter is the validated form of ListQuery handed to the store.
// Empty fields do not filter.
type ListFilter struct {
	City         City
	PropertyType PropertyType
	Status       Status
	Timeline     Timeline
	Search       string
	Limit        int
	Offset       int
}

// ListResult is one page of buyers plus pagination metadata.
type ListResult struct {
	Buyers     []Buyer `json:"buyers"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
	HasNext    bool    `json:"hasNext"`
	HasPrev    bool    `json:"hasPrev"`
}

// RowError reports why a CSV data row was rejected. Row is the 1-based
// line number in the file, counting the header as line 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult is returned by a successful import.
type ImportResult struct {
	InsertedCount int `json:"insertedCount"`
}

// PreviewResult describes what an import would do without writing.
type PreviewResult struct {
	TotalRows int        `json:"totalRows"`
	ValidRows int        `json:"validRows"`
	Errors    []RowError `json:"errors"`
}

// UpdateFunc receives the locked, current version of a buyer and returns
// the version to store plus the history entry to record. Returning a nil
// history leaves the stored row untouched.
type UpdateFunc func(current Buyer) (Buyer, *History, error)

// Store persists buyers and their history. Implementations must make
// CreateBuyers and UpdateBuyer atomic.
type Store interface {
	// CreateBuyers inserts every buyer and history entry in one transaction.
	CreateBuyers(ctx context.Context, buyers []Buyer, history []History) ([]Buyer, error)
	GetBuyer(ctx context.Context, id string) (Buyer, error)
	UpdateBuyer(ctx context.Context, id string, fn UpdateFunc) (Buyer, error)
	DeleteBuyer(ctx context.Context, id string) error
	ListBuyers(ctx context.Context, filter ListFilter) ([]Buyer, error)
	CountBuyers(ctx context.Context, filter ListFilter) (int64, error)
	// AllBuyers returns every buyer ordered by updatedAt descending.
	AllBuyers(ctx context.Context) ([]Buyer, error)
	ListHistory(ctx context.Context, buyerID string, limit int) ([]History, error)
}
