package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/pomolist/internal/store"
)

const dateFormat = "2006-01-02"

func ToCSV(tasks []*store.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Date", "Title", "Categories", "Units", "Focused (s)", "Focused", "Done", "Order", "Created"}); err != nil {
		return err
	}

	for _, t := range tasks {
		order := ""
		if t.Order != nil {
			order = strconv.Itoa(*t.Order)
		}
		secs := int64(t.Focused() / time.Second)

		row := []string{
			t.ID,
			t.Date.Format(dateFormat),
			t.Title,
			strings.Join(t.Categories, "; "),
			strconv.Itoa(t.DurationUnits),
			strconv.FormatInt(secs, 10),
			formatDuration(secs),
			strconv.FormatBool(t.Done),
			order,
			t.CreatedAt.Local().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
