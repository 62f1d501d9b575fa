package core

// validation.go turns a RawBuyer into a normalized Buyer.
//
// Validation happens in two phases:
//  1. Field checks: every FieldSpec is applied and all failures are collected
//  2. Cross-field rules: only run once every field is individually valid
//
// Callers always receive every failing field, never just the first.

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldType describes the expected shape of a raw field value.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldInteger
	FieldTags
)

// FieldSpec defines validation rules for a single buyer field.
type FieldSpec struct {
	Name       string    // JSON / CSV field name
	Label      string    // Human readable name used in messages
	Type       FieldType // Expected data type
	Required   bool      // Field must be present and non-empty
	Rule       string    // validator tag applied to non-empty text
	Message    string    // Message reported when Rule fails
	EnumValues []string  // Valid values for FieldEnum
}

// BuyerFields lists every field a client may supply, in export column order.
var BuyerFields = []FieldSpec{
	{Name: "fullName", Label: "Full name", Type: FieldText, Required: true, Rule: "min=2,max=80", Message: "Full name must be 2-80 characters"},
	{Name: "email", Label: "Email", Type: FieldText, Rule: "email", Message: "Invalid email"},
	{Name: "phone", Label: "Phone", Type: FieldText, Required: true, Rule: "phone", Message: "Phone must be 10-15 digits"},
	{Name: "city", Label: "City", Type: FieldEnum, Required: true, EnumValues: Cities},
	{Name: "propertyType", Label: "Property type", Type: FieldEnum, Required: true, EnumValues: PropertyTypes},
	{Name: "bhk", Label: "BHK", Type: FieldEnum, EnumValues: BHKs},
	{Name: "purpose", Label: "Purpose", Type: FieldEnum, Required: true, EnumValues: Purposes},
	{Name: "budgetMin", Label: "Budget min", Type: FieldInteger},
	{Name: "budgetMax", Label: "Budget max", Type: FieldInteger},
	{Name: "timeline", Label: "Timeline", Type: FieldEnum, Required: true, EnumValues: Timelines},
	{Name: "source", Label: "Source", Type: FieldEnum, Required: true, EnumValues: Sources},
	{Name: "notes", Label: "Notes", Type: FieldText, Rule: "max=1000", Message: "Notes must be at most 1000 characters"},
	{Name: "tags", Label: "Tags", Type: FieldTags},
	{Name: "status", Label: "Status", Type: FieldEnum, EnumValues: Statuses},
}

// ErrValidation is matched by every ValidationErrors value.
var ErrValidation = errors.New("validation failed")

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field"`   // Field name, empty for record-level problems
	Value   string `json:"-"`       // The invalid value
	Message string `json:"message"` // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors aggregates every failing field of a record.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, e := range ve {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return b.String()
}

func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Messages returns the bare messages in order.
func (ve ValidationErrors) Messages() []string {
	out := make([]string, len(ve))
	for i, e := range ve {
		out[i] = e.Message
	}
	return out
}

var phonePattern = regexp.MustCompile(`^\d{10,15}$`)

var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateBuyer checks raw and returns the normalized payload. Status
// defaults to New and tags to an empty list. Keys not named in
// BuyerFields are ignored. The returned Buyer carries no identity,
// owner or timestamps.
func ValidateBuyer(raw RawBuyer) (Buyer, error) {
	var (
		b    = Buyer{Status: StatusNew, Tags: []string{}}
		errs ValidationErrors
	)

	for _, spec := range BuyerFields {
		if err := applyField(&b, spec, raw[spec.Name]); err != nil {
			errs = append(errs, *err)
		}
	}
	if len(errs) > 0 {
		return Buyer{}, errs
	}

	if errs = crossFieldErrors(b); len(errs) > 0 {
		return Buyer{}, errs
	}
	return b, nil
}

// crossFieldErrors enforces rules that span more than one field.
func crossFieldErrors(b Buyer) ValidationErrors {
	var errs ValidationErrors
	if b.PropertyType.Residential() && b.BHK == "" {
		errs = append(errs, ValidationError{Field: "bhk", Message: "BHK required for Apartment/Villa"})
	}
	if !b.PropertyType.Residential() && b.BHK != "" {
		errs = append(errs, ValidationError{Field: "bhk", Value: string(b.BHK), Message: "BHK only applies to Apartment/Villa"})
	}
	if b.BudgetMin != nil && b.BudgetMax != nil && *b.BudgetMax < *b.BudgetMin {
		errs = append(errs, ValidationError{
			Field:   "budgetMax",
			Value:   strconv.FormatInt(*b.BudgetMax, 10),
			Message: "Budget max must be greater than or equal to budget min",
		})
	}
	return errs
}

func applyField(b *Buyer, spec FieldSpec, v any) *ValidationError {
	switch spec.Type {
	case FieldTags:
		tags, err := toTags(v)
		if err != nil {
			return &ValidationError{Field: spec.Name, Message: spec.Label + " must be a list of text values"}
		}
		for _, tag := range tags {
			if strings.ContainsAny(tag, TagSeparators) {
				return &ValidationError{Field: spec.Name, Value: tag, Message: spec.Label + " cannot contain ',' or '|'"}
			}
		}
		b.Tags = tags
		return nil

	case FieldInteger:
		n, present, err := toInt64(v)
		if err != nil {
			return &ValidationError{Field: spec.Name, Value: fmt.Sprint(v), Message: spec.Label + " must be a whole number"}
		}
		if !present {
			return nil
		}
		if n <= 0 {
			return &ValidationError{Field: spec.Name, Value: strconv.FormatInt(n, 10), Message: spec.Label + " must be positive"}
		}
		setInteger(b, spec.Name, n)
		return nil
	}

	s, ok := toText(v)
	if !ok {
		return &ValidationError{Field: spec.Name, Value: fmt.Sprint(v), Message: spec.Label + " must be text"}
	}
	if s == "" {
		if spec.Required {
			return &ValidationError{Field: spec.Name, Message: spec.Label + " is required"}
		}
		return nil
	}

	switch spec.Type {
	case FieldEnum:
		if !containsExact(spec.EnumValues, s) {
			return &ValidationError{
				Field:   spec.Name,
				Value:   s,
				Message: fmt.Sprintf("%s must be one of: %s", spec.Label, strings.Join(spec.EnumValues, ", ")),
			}
		}
	default:
		if spec.Rule != "" {
			if err := fieldValidator.Var(s, spec.Rule); err != nil {
				return &ValidationError{Field: spec.Name, Value: s, Message: spec.Message}
			}
		}
	}
	setText(b, spec.Name, s)
	return nil
}

func setText(b *Buyer, name, s string) {
	switch name {
	case "fullName":
		b.FullName = s
	case "email":
		b.Email = s
	case "phone":
		b.Phone = s
	case "city":
		b.City = City(s)
	case "propertyType":
		b.PropertyType = PropertyType(s)
	case "bhk":
		b.BHK = BHK(s)
	case "purpose":
		b.Purpose = Purpose(s)
	case "timeline":
		b.Timeline = Timeline(s)
	case "source":
		b.Source = Source(s)
	case "status":
		b.Status = Status(s)
	case "notes":
		b.Notes = s
	}
}

func setInteger(b *Buyer, name string, n int64) {
	switch name {
	case "budgetMin":
		b.BudgetMin = &n
	case "budgetMax":
		b.BudgetMax = &n
	}
}

// toText returns the trimmed string form of v. nil is treated as "".
func toText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return strings.TrimSpace(t), true
	default:
		return "", false
	}
}

// toInt64 accepts integral numbers. nil and "" mean absent; any other
// string is rejected so bad input never silently becomes zero.
func toInt64(v any) (n int64, present bool, err error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("invalid number %q", t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("invalid number %q", t)
		}
		return n, true, nil
	case int:
		return int64(t), true, nil
	case int32:
		return int64(t), true, nil
	case int64:
		return t, true, nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || t >= math.MaxInt64 || t < math.MinInt64 {
			return 0, false, fmt.Errorf("invalid number %v", t)
		}
		return int64(t), true, nil
	default:
		return 0, false, fmt.Errorf("invalid number %v", t)
	}
}

// toTags accepts a list of text values. Tags are trimmed and blank ones
// dropped, so a stored list survives an export and re-import unchanged.
func toTags(v any) ([]string, error) {
	var items []string
	switch t := v.(type) {
	case nil:
	case []string:
		items = t
	case []any:
		items = make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tag %v is not text", item)
			}
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("tags must be a list")
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func containsExact(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// buyerToRaw is the inverse of ValidateBuyer for the client-editable fields.
// Absent optional values are left out so a merged patch can clear them.
func buyerToRaw(b Buyer) RawBuyer {
	raw := RawBuyer{
		"fullName":     b.FullName,
		"phone":        b.Phone,
		"city":         string(b.City),
		"propertyType": string(b.PropertyType),
		"purpose":      string(b.Purpose),
		"timeline":     string(b.Timeline),
		"source":       string(b.Source),
		"status":       string(b.Status),
		"tags":         append([]string{}, b.Tags...),
	}
	if b.Email != "" {
		raw["email"] = b.Email
	}
	if b.BHK != "" {
		raw["bhk"] = string(b.BHK)
	}
	if b.Notes != "" {
		raw["notes"] = b.Notes
	}
	if b.BudgetMin != nil {
		raw["budgetMin"] = *b.BudgetMin
	}
	if b.BudgetMax != nil {
		raw["budgetMax"] = *b.BudgetMax
	}
	return raw
}
