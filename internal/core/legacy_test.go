package core

import (
	"testing"
)

func TestNormalizeBHK(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "BHK1"},
		{"4", "BHK4"},
		{"studio", "Studio"},
		{"Studio", "Studio"},
		{"BHK 3", "BHK3"},
		{" 2 ", "BHK2"},
		{"BHK2", "BHK2"},
		{"5", "5"},
		{"penthouse", "penthouse"},
	}
	for _, tt := range tests {
		if got := NormalizeBHK(tt.in); got != tt.want {
			t.Errorf("NormalizeBHK(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTimeline(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0-3m", "ZERO_TO_THREE_MONTHS"},
		{"3-6m", "THREE_TO_SIX_MONTHS"},
		{">6m", "MORE_THAN_SIX_MONTHS"},
		{"Exploring", "EXPLORING"},
		{"EXPLORING", "EXPLORING"},
		{"THREE_TO_SIX_MONTHS", "THREE_TO_SIX_MONTHS"},
		{"soon", ""},
		{"exploring", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTimeline(tt.in); got != tt.want {
			t.Errorf("NormalizeTimeline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"   ", []string{}},
		{"hot", []string{"hot"}},
		{"hot, nri ,hot", []string{"hot", "nri", "hot"}},
		{"a||b", []string{"a", "", "b"}},
		{"a|b,c", []string{"a", "b", "c"}},
		{"a,", []string{"a", ""}},
	}
	for _, tt := range tests {
		got := SplitTags(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("SplitTags(%q) = %q, want %q", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitTags(%q) = %q, want %q", tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestMapLegacyRow(t *testing.T) {
	raw := MapLegacyRow(CSVRow{
		"fullName":  "  Meera  ",
		"email":     "",
		"bhk":       "2",
		"timeline":  "0-3m",
		"tags":      "a, b",
		"budgetMin": "1500000",
		"budgetMax": "lots",
		"notes":     "",
	})

	if got := raw["fullName"]; got != "Meera" {
		t.Errorf("fullName = %v, want Meera", got)
	}
	if _, ok := raw["email"]; ok {
		t.Error("empty email should be absent")
	}
	if got := raw["bhk"]; got != "BHK2" {
		t.Errorf("bhk = %v, want BHK2", got)
	}
	if got := raw["timeline"]; got != "ZERO_TO_THREE_MONTHS" {
		t.Errorf("timeline = %v, want ZERO_TO_THREE_MONTHS", got)
	}
	if got, ok := raw["budgetMin"].(int64); !ok || got != 1500000 {
		t.Errorf("budgetMin = %#v, want int64(1500000)", raw["budgetMin"])
	}
	if got := raw["budgetMax"]; got != "lots" {
		t.Errorf("budgetMax = %#v, want the raw text", got)
	}
	tags, ok := raw["tags"].([]string)
	if !ok || len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %#v, want [a b]", raw["tags"])
	}
}

func TestMapLegacyRow_UnknownTimelineIsAbsent(t *testing.T) {
	raw := MapLegacyRow(CSVRow{"timeline": "next year", "bhk": ""})
	if _, ok := raw["timeline"]; ok {
		t.Error("unknown timeline should be absent")
	}
	if _, ok := raw["bhk"]; ok {
		t.Error("empty bhk should be absent")
	}
}

func TestMapLegacyRow_NonNumericBudgetFailsValidation(t *testing.T) {
	raw := MapLegacyRow(CSVRow{
		"fullName": "Kiran", "phone": "9876543210", "city": "Other",
		"propertyType": "Plot", "purpose": "Buy", "timeline": "Exploring",
		"source": "Call", "budgetMin": "ten lakh",
	})
	_, err := ValidateBuyer(raw)
	if err == nil {
		t.Fatal("expected validation error for non-numeric budget")
	}
	var ve ValidationErrors
	if !asValidation(err, &ve) || ve[0].Field != "budgetMin" {
		t.Errorf("expected budgetMin error, got %v", err)
	}
}

func asValidation(err error, target *ValidationErrors) bool {
	ve, ok := err.(ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}
