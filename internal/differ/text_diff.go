package differ

import (
	"fmt"
	"strings"
	"time"

	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// textDiffer wraps the diff-match-patch engine for the text facet.
type textDiffer struct {
	dmp    *diffmatchpatch.DiffMatchPatch
	config DiffConfig
}

func newTextDiffer(cfg DiffConfig) *textDiffer {
	return &textDiffer{
		dmp:    diffmatchpatch.New(),
		config: cfg,
	}
}

// diff compares the text content of two snapshots. It returns nil when the
// texts are identical or when every edited fragment is below the minimum
// reportable length.
func (td *textDiffer) diff(oldText, newText string, detectedAt time.Time) *models.ChangeRecord {
	oldText = strings.TrimSpace(oldText)
	newText = strings.TrimSpace(newText)
	if oldText == newText {
		return nil
	}

	diffs := td.dmp.DiffMain(oldText, newText, true)
	if td.config.EnableSemanticCleanup {
		diffs = td.dmp.DiffCleanupSemantic(diffs)
	}

	var added, removed []string
	for _, d := range diffs {
		fragment := strings.TrimSpace(d.Text)
		if len([]rune(fragment)) < td.config.MinTextFragment {
			continue
		}
		fragment = td.truncate(fragment)

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added = append(added, fragment)
		case diffmatchpatch.DiffDelete:
			removed = append(removed, fragment)
		}
	}

	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	return &models.ChangeRecord{
		Type:        models.ChangeTypeTextChange,
		Description: describeTextChange(added, removed),
		Details: models.ChangeDetails{
			TextAdded:   added,
			TextRemoved: removed,
		},
		DetectedAt: detectedAt,
	}
}

func (td *textDiffer) truncate(fragment string) string {
	runes := []rune(fragment)
	if len(runes) <= td.config.MaxFragmentLength {
		return fragment
	}
	return string(runes[:td.config.MaxFragmentLength])
}

func describeTextChange(added, removed []string) string {
	parts := []string{fmt.Sprintf("Text content changed - %d additions, %d removals", len(added), len(removed))}

	if len(added) > 0 {
		parts = append(parts, "Added examples: "+strings.Join(fragmentExamples(added), " | "))
	}
	if len(removed) > 0 {
		parts = append(parts, "Removed examples: "+strings.Join(fragmentExamples(removed), " | "))
	}
	return strings.Join(parts, " | ")
}

func fragmentExamples(fragments []string) []string {
	examples := make([]string, 0, 2)
	for _, fragment := range fragments {
		runes := []rune(fragment)
		if len(runes) > 50 {
			fragment = string(runes[:50])
		}
		examples = append(examples, fragment)
		if len(examples) == 2 {
			break
		}
	}
	return examples
}
