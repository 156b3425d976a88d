package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/pomolist/internal/store"
)

type jsonExport struct {
	ExportedAt string     `json:"exported_at"`
	Count      int        `json:"count"`
	Tasks      []jsonTask `json:"tasks"`
}

type jsonTask struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	Title      string   `json:"title"`
	Categories []string `json:"categories,omitempty"`
	Units      int      `json:"duration_units"`
	FocusedSec int64    `json:"focused_seconds"`
	Focused    string   `json:"focused"`
	Done       bool     `json:"done"`
	Order      *int     `json:"order"`
	CreatedAt  string   `json:"created_at"`
}

func ToJSON(tasks []*store.Task, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(tasks),
		Tasks:      []jsonTask{},
	}

	for _, t := range tasks {
		secs := int64(t.Focused() / time.Second)
		export.Tasks = append(export.Tasks, jsonTask{
			ID:         t.ID,
			Date:       t.Date.Format(dateFormat),
			Title:      t.Title,
			Categories: t.Categories,
			Units:      t.DurationUnits,
			FocusedSec: secs,
			Focused:    formatDuration(secs),
			Done:       t.Done,
			Order:      t.Order,
			CreatedAt:  t.CreatedAt.Local().Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
