// Package validate checks task input before it reaches the task store and
// parses the loose formats people type on the command line.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
)

// Input limits beyond the ones the store enforces itself.
const (
	MaxTitleLen    = 120
	MaxCategoryLen = 30
)

type draftInput struct {
	Date          time.Time `name:"date" validate:"required"`
	Title         string    `name:"title" validate:"required,max=120"`
	Categories    []string  `name:"categories" validate:"max=5,dive,required,max=30"`
	DurationUnits int       `name:"duration" validate:"min=1,max=10"`
}

type patchInput struct {
	Date          *time.Time `name:"date" validate:"omitempty"`
	Title         *string    `name:"title" validate:"omitempty,max=120"`
	Categories    *[]string  `name:"categories" validate:"omitempty,max=5,dive,required,max=30"`
	DurationUnits *int       `name:"duration" validate:"omitempty,min=1,max=10"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("name")
	})
	return val
}

// Draft trims d and checks it, returning the cleaned draft or the first
// violation as a *taskstore.ValidationError.
func Draft(d taskstore.Draft) (taskstore.Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Categories = clean(d.Categories)

	in := draftInput{
		Date:          d.Date,
		Title:         d.Title,
		Categories:    d.Categories,
		DurationUnits: d.DurationUnits,
	}
	if err := v.Struct(in); err != nil {
		return d, translate(err)
	}
	return d, nil
}

// Patch does for a patch what Draft does for a draft. Nil fields are skipped.
func Patch(p taskstore.Patch) (taskstore.Patch, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return p, &taskstore.ValidationError{Field: "title", Reason: "must not be empty"}
		}
		p.Title = &title
	}
	if p.Categories != nil {
		cats := clean(*p.Categories)
		p.Categories = &cats
	}
	if p.Date != nil && p.Date.IsZero() {
		return p, &taskstore.ValidationError{Field: "date", Reason: "is required"}
	}

	in := patchInput{
		Date:          p.Date,
		Title:         p.Title,
		Categories:    p.Categories,
		DurationUnits: p.DurationUnits,
	}
	if err := v.Struct(in); err != nil {
		return p, translate(err)
	}
	return p, nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field, _, _ := strings.Cut(fe.Field(), "[")

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			reason = fmt.Sprintf("at most %s allowed", fe.Param())
		} else if fe.Kind() == reflect.String {
			reason = fmt.Sprintf("must be at most %s characters", fe.Param())
		} else {
			reason = fmt.Sprintf("must be at most %s", fe.Param())
		}
	case "min":
		reason = fmt.Sprintf("must be at least %s", fe.Param())
	default:
		reason = fmt.Sprintf("failed %q", fe.Tag())
	}
	return &taskstore.ValidationError{Field: field, Reason: reason}
}

// clean trims every entry and drops empty ones; nothing left means nil.
func clean(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Categories splits a comma-separated list.
func Categories(s string) []string {
	return clean(strings.Split(s, ","))
}

// Date parses YYYY-MM-DD or one of today, tomorrow, yesterday relative to now,
// in loc. The result is normalized with store.Day.
func Date(s string, now time.Time, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return store.Day(now), nil
	case "tomorrow":
		return store.Day(now.AddDate(0, 0, 1)), nil
	case "yesterday":
		return store.Day(now.AddDate(0, 0, -1)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, &taskstore.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD, today, tomorrow or yesterday", s)}
	}
	return store.Day(t), nil
}
