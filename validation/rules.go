// Package validation holds the menu item rule table shared by the server
// (authoritative) and the admin client (precheck).
package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"menu-admin/models"
)

type Reason string

const (
	RequiredField Reason = "RequiredField"
	InvalidNumber Reason = "InvalidNumber"
	OutOfRange    Reason = "OutOfRange"
)

const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCategoryID  = "category_id"
	FieldImageURL    = "image_url"
)

// Column limits of menu_items (VARCHAR(255), NUMERIC(10,2), VARCHAR(500)).
const (
	MaxNameLength     = 255
	MaxImageURLLength = 500
)

var maxPrice = decimal.New(1, 8) // exclusive

// Candidate is the subset of a menu item payload the rules look at.
type Candidate struct {
	Name        string
	Description string
	Price       string
	ImageURL    string
	CategoryID  int64
}

func CandidateFrom(in models.MenuItemInput) Candidate {
	c := Candidate{
		Name:        in.Name,
		Description: in.Description,
		Price:       string(in.Price),
		CategoryID:  in.CategoryID,
	}
	if in.ImageURL != nil {
		c.ImageURL = *in.ImageURL
	}
	return c
}

// Rule checks one field. ok=false means the field violates the rule.
type Rule struct {
	Field string
	Check func(c Candidate) (reason Reason, ok bool)
}

type RuleSet []Rule

var (
	nameRule = Rule{FieldName, func(c Candidate) (Reason, bool) {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return RequiredField, false
		}
		return OutOfRange, utf8.RuneCountInString(name) <= MaxNameLength
	}}
	priceRule = Rule{FieldPrice, func(c Candidate) (Reason, bool) {
		_, reason, ok := parsePrice(c.Price)
		return reason, ok
	}}
	categoryRule = Rule{FieldCategoryID, func(c Candidate) (Reason, bool) {
		return RequiredField, c.CategoryID > 0
	}}
	imageRule = Rule{FieldImageURL, func(c Candidate) (Reason, bool) {
		return OutOfRange, utf8.RuneCountInString(strings.TrimSpace(c.ImageURL)) <= MaxImageURLLength
	}}
	descriptionRule = Rule{FieldDescription, func(c Candidate) (Reason, bool) {
		return RequiredField, strings.TrimSpace(c.Description) != ""
	}}
)

// Server is the authoritative rule set: nothing failing it is ever stored.
var Server = RuleSet{nameRule, priceRule, categoryRule, imageRule}

// Client is the admin form precheck. It additionally requires a description;
// it must stay at least as strict as Server.
var Client = append(append(RuleSet{}, Server...), descriptionRule)

// Validate runs every rule and collects all violations. Nil means valid.
func (rs RuleSet) Validate(c Candidate) Violations {
	var v Violations
	for _, r := range rs {
		reason, ok := r.Check(c)
		if ok {
			continue
		}
		if v == nil {
			v = make(Violations)
		}
		if _, seen := v[r.Field]; !seen {
			v[r.Field] = reason
		}
	}
	return v
}

// Normalize validates in and returns the record to persist.
func (rs RuleSet) Normalize(in models.MenuItemInput) (models.MenuItemRecord, error) {
	if v := rs.Validate(CandidateFrom(in)); v != nil {
		return models.MenuItemRecord{}, v
	}
	price, err := NormalizePrice(string(in.Price))
	if err != nil {
		return models.MenuItemRecord{}, err
	}
	rec := models.MenuItemRecord{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       price,
		IsAvailable: true,
		CategoryID:  in.CategoryID,
	}
	if in.IsAvailable != nil {
		rec.IsAvailable = *in.IsAvailable
	}
	if in.ImageURL != nil {
		if s := strings.TrimSpace(*in.ImageURL); s != "" {
			rec.ImageURL = &s
		}
	}
	return rec, nil
}

// NormalizePrice parses and rounds a price to two decimals.
func NormalizePrice(raw string) (decimal.Decimal, error) {
	d, reason, ok := parsePrice(raw)
	if !ok {
		return decimal.Decimal{}, Violations{FieldPrice: reason}
	}
	return d, nil
}

func parsePrice(raw string) (decimal.Decimal, Reason, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, InvalidNumber, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, InvalidNumber, false
	}
	d = d.Round(2)
	if !d.IsPositive() || !d.LessThan(maxPrice) {
		return decimal.Decimal{}, OutOfRange, false
	}
	return d, "", true
}

// Violations maps a field name to the rule it broke.
type Violations map[string]Reason

func (v Violations) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, v[f])
	}
	return "invalid menu item: " + strings.Join(parts, ", ")
}

// Message renders a human readable message for one reason.
func Message(field string, reason Reason) string {
	switch reason {
	case RequiredField:
		return field + " is required"
	case InvalidNumber:
		return field + " must be a number"
	case OutOfRange:
		switch field {
		case FieldPrice:
			return field + " must be between 0.01 and 99999999.99"
		case FieldName:
			return fmt.Sprintf("%s must be at most %d characters", field, MaxNameLength)
		case FieldImageURL:
			return fmt.Sprintf("%s must be at most %d characters", field, MaxImageURLLength)
		}
		return field + " is out of range"
	}
	return field + " is invalid"
}
