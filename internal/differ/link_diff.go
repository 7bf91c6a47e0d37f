package differ

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aleister1102/pagewatch/internal/models"
)

// diffLinks emits new_links and removed_links records, in that order. Link
// identity combines target URL and visible text so that relabeled links are
// reported as a removal plus an addition.
func diffLinks(old, current []models.LinkInfo, detectedAt time.Time) []models.ChangeRecord {
	oldByKey := linksByKey(old)
	newByKey := linksByKey(current)

	var records []models.ChangeRecord

	if added := selectLinks(newByKey, missingLinkKeys(newByKey, oldByKey)); len(added) > 0 {
		records = append(records, models.ChangeRecord{
			Type:        models.ChangeTypeNewLinks,
			Description: fmt.Sprintf("%d new links found", len(added)),
			Details:     models.ChangeDetails{Links: added},
			DetectedAt:  detectedAt,
		})
	}

	if removed := selectLinks(oldByKey, missingLinkKeys(oldByKey, newByKey)); len(removed) > 0 {
		records = append(records, models.ChangeRecord{
			Type:        models.ChangeTypeRemovedLinks,
			Description: describeRemovedLinks(removed),
			Details:     models.ChangeDetails{Links: removed},
			DetectedAt:  detectedAt,
		})
	}

	return records
}

func linksByKey(links []models.LinkInfo) map[string]models.LinkInfo {
	byKey := make(map[string]models.LinkInfo, len(links))
	for _, link := range links {
		byKey[link.Key()] = link
	}
	return byKey
}

func missingLinkKeys(a, b map[string]models.LinkInfo) []string {
	var keys []string
	for key := range a {
		if _, ok := b[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func selectLinks(byKey map[string]models.LinkInfo, keys []string) []models.LinkInfo {
	if len(keys) == 0 {
		return nil
	}
	links := make([]models.LinkInfo, 0, len(keys))
	for _, key := range keys {
		links = append(links, byKey[key])
	}
	return links
}

func describeRemovedLinks(removed []models.LinkInfo) string {
	parts := []string{fmt.Sprintf("%d links removed", len(removed))}

	var examples []string
	for _, link := range removed {
		if link.Text != "" {
			text := link.Text
			if len(text) > 50 {
				text = text[:50]
			}
			examples = append(examples, text)
		}
		if len(examples) == 3 {
			break
		}
	}
	if len(examples) > 0 {
		parts = append(parts, "Examples: "+strings.Join(examples, ", "))
	}
	return strings.Join(parts, " | ")
}
