package differ

import (
	"github.com/aleister1102/pagewatch/internal/models"
)

// SnapshotDiffer compares two page snapshots facet by facet and emits one
// ChangeRecord per facet that changed. It is pure: no I/O, no state beyond
// configuration, deterministic output order (images, links, text,
// structure).
type SnapshotDiffer struct {
	config DiffConfig
	text   *textDiffer
}

// NewSnapshotDiffer creates a new snapshot differ.
func NewSnapshotDiffer(cfg DiffConfig) *SnapshotDiffer {
	return &SnapshotDiffer{
		config: cfg,
		text:   newTextDiffer(cfg),
	}
}

// Diff compares the previous snapshot against the current one. A nil
// previous snapshot means this is the first check; no change can be claimed
// without a baseline, so the result is empty.
func (sd *SnapshotDiffer) Diff(previous, current *models.PageSnapshot) []models.ChangeRecord {
	if previous == nil || current == nil {
		return nil
	}

	var records []models.ChangeRecord

	records = append(records, diffImages(previous.Images, current.Images, current.FetchedAt)...)
	records = append(records, diffLinks(previous.Links, current.Links, current.FetchedAt)...)
	if record := sd.text.diff(previous.Text, current.Text, current.FetchedAt); record != nil {
		records = append(records, *record)
	}
	if record := diffHeadings(previous.Headings, current.Headings, current.FetchedAt); record != nil {
		records = append(records, *record)
	}

	return records
}
