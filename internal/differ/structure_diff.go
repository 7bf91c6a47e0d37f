package differ

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aleister1102/pagewatch/internal/models"
)

// diffHeadings compares the structural markers (heading blocks) of two
// snapshots and emits a single structure_change record when blocks appeared
// or disappeared. Heading identity is the title, case-insensitive.
func diffHeadings(old, current []models.HeadingBlock, detectedAt time.Time) *models.ChangeRecord {
	oldByTitle := headingsByTitle(old)
	newByTitle := headingsByTitle(current)

	added := selectHeadings(newByTitle, missingHeadingKeys(newByTitle, oldByTitle))
	removed := selectHeadings(oldByTitle, missingHeadingKeys(oldByTitle, newByTitle))

	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	return &models.ChangeRecord{
		Type:        models.ChangeTypeStructureChange,
		Description: describeStructureChange(added, removed),
		Details: models.ChangeDetails{
			HeadingsAdded:   added,
			HeadingsRemoved: removed,
		},
		DetectedAt: detectedAt,
	}
}

func headingsByTitle(headings []models.HeadingBlock) map[string]models.HeadingBlock {
	byTitle := make(map[string]models.HeadingBlock, len(headings))
	for _, heading := range headings {
		byTitle[strings.ToUpper(heading.Title)] = heading
	}
	return byTitle
}

func missingHeadingKeys(a, b map[string]models.HeadingBlock) []string {
	var keys []string
	for key := range a {
		if _, ok := b[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func selectHeadings(byTitle map[string]models.HeadingBlock, keys []string) []models.HeadingBlock {
	if len(keys) == 0 {
		return nil
	}
	headings := make([]models.HeadingBlock, 0, len(keys))
	for _, key := range keys {
		headings = append(headings, byTitle[key])
	}
	return headings
}

func describeStructureChange(added, removed []models.HeadingBlock) string {
	var parts []string
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("%d structure blocks added: %s", len(added), joinTitles(added)))
	}
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d structure blocks removed: %s", len(removed), joinTitles(removed)))
	}
	return strings.Join(parts, " | ")
}

func joinTitles(headings []models.HeadingBlock) string {
	titles := make([]string, 0, len(headings))
	for _, heading := range headings {
		titles = append(titles, heading.Title)
	}
	return strings.Join(titles, ", ")
}
