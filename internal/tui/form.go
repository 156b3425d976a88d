package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/sadopc/pomolist/internal/store"
	"github.com/sadopc/pomolist/internal/taskstore"
	"github.com/sadopc/pomolist/internal/validate"
)

// taskFields backs the task form. The model keeps a pointer so the values
// survive Bubble Tea's value copies.
type taskFields struct {
	title      string
	date       string
	categories string
	units      int
}

func (f *taskFields) reset(today time.Time) {
	*f = taskFields{date: store.Day(today).Format("2006-01-02"), units: 1}
}

func (f *taskFields) load(t *store.Task) {
	*f = taskFields{
		title:      t.Title,
		date:       t.Date.Format("2006-01-02"),
		categories: strings.Join(t.Categories, ", "),
		units:      t.DurationUnits,
	}
}

func newTaskForm(f *taskFields, now func() time.Time) *huh.Form {
	unitOptions := make([]huh.Option[int], 0, taskstore.MaxUnits)
	for i := taskstore.MinUnits; i <= taskstore.MaxUnits; i++ {
		unitOptions = append(unitOptions, huh.NewOption(fmt.Sprintf("%d %s", i, units(i)), i))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&f.title).
				CharLimit(validate.MaxTitleLen).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewInput().Title("Date").Description("YYYY-MM-DD, today, tomorrow").Value(&f.date).
				Validate(func(s string) error {
					_, err := validate.Date(s, now(), time.Local)
					return err
				}),
			huh.NewInput().Title("Categories (comma-separated)").Value(&f.categories).
				Validate(func(s string) error {
					if n := len(validate.Categories(s)); n > taskstore.MaxCategories {
						return fmt.Errorf("at most %d categories", taskstore.MaxCategories)
					}
					return nil
				}),
			huh.NewSelect[int]().Title("Pomodoros").Options(unitOptions...).Value(&f.units),
		),
	).WithShowHelp(true).WithShowErrors(true)
}

func (f *taskFields) draft(now time.Time) (taskstore.Draft, error) {
	date, err := validate.Date(f.date, now, time.Local)
	if err != nil {
		return taskstore.Draft{}, err
	}
	return validate.Draft(taskstore.Draft{
		Date:          date,
		Title:         f.title,
		Categories:    validate.Categories(f.categories),
		DurationUnits: f.units,
	})
}

func (f *taskFields) patch(now time.Time) (taskstore.Patch, error) {
	date, err := validate.Date(f.date, now, time.Local)
	if err != nil {
		return taskstore.Patch{}, err
	}
	title := f.title
	cats := validate.Categories(f.categories)
	n := f.units
	return validate.Patch(taskstore.Patch{
		Date:          &date,
		Title:         &title,
		Categories:    &cats,
		DurationUnits: &n,
	})
}
