package core

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// FieldValue returns the comparable value of a client-editable field.
// Absent optional values are reported as nil.
func FieldValue(b Buyer, field string) any {
	switch field {
	case "fullName":
		return b.FullName
	case "email":
		return optionalText(b.Email)
	case "phone":
		return b.Phone
	case "city":
		return string(b.City)
	case "propertyType":
		return string(b.PropertyType)
	case "bhk":
		return optionalText(string(b.BHK))
	case "purpose":
		return string(b.Purpose)
	case "budgetMin":
		return optionalInt(b.BudgetMin)
	case "budgetMax":
		return optionalInt(b.BudgetMax)
	case "timeline":
		return string(b.Timeline)
	case "source":
		return string(b.Source)
	case "status":
		return string(b.Status)
	case "notes":
		return optionalText(b.Notes)
	case "tags":
		if b.Tags == nil {
			return []string{}
		}
		return b.Tags
	}
	return nil
}

func optionalText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

// DiffBuyers compares the named fields of before and after and returns an
// [old, new] pair for each one that changed. Tags compare element by
// element, so reordering counts as a change. Unknown field names are skipped.
func DiffBuyers(before, after Buyer, fields []string) Diff {
	diff := Diff{}
	for _, field := range fields {
		if !isBuyerField(field) {
			continue
		}
		oldVal, newVal := FieldValue(before, field), FieldValue(after, field)
		if valuesEqual(oldVal, newVal) {
			continue
		}
		diff[field] = Change{oldVal, newVal}
	}
	return diff
}

func valuesEqual(a, b any) bool {
	as, aTags := a.([]string)
	bs, bTags := b.([]string)
	if aTags || bTags {
		return aTags && bTags && slices.Equal(as, bs)
	}
	return a == b
}

func isBuyerField(name string) bool {
	for _, spec := range BuyerFields {
		if spec.Name == name {
			return true
		}
	}
	return false
}

// NewHistory builds a history entry for buyerID attributed to actor.
func NewHistory(buyerID string, actor Actor, diff Diff, at time.Time) History {
	return History{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		ChangedBy: actor.ID,
		Diff:      diff,
		CreatedAt: at,
	}
}
