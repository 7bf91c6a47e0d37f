package annotator

import (
	"fmt"
	"strings"

	"github.com/aleister1102/pagewatch/internal/models"
)

const promptTemplate = `You are an expert analyst monitoring websites for notable content changes.
Analyze the following website change and determine whether any notable entities (companies, products, organizations) were added, removed or modified.

Changes detected:
%s

Ignore navigation/menu churn and cosmetic updates. Focus on actual content entities.

IMPORTANT: Respond with ONLY valid JSON, no markdown formatting or code blocks:
{
  "notable_detected": true/false,
  "entities": [
    {
      "name": "Entity Name",
      "category": "Industry/Sector",
      "confidence": "high/medium/low",
      "evidence": "What evidence suggests this entity changed",
      "source": "image/text/link/structure"
    }
  ],
  "added_entity": "Added entity name or null",
  "removed_entity": "Removed entity name or null",
  "modified_entity": "Modified entity name or null",
  "summary": "Brief summary of the analysis"
}`

// buildPrompt renders the change record's facet payload into the analysis
// prompt, mirroring the per-type context the classifier expects.
func buildPrompt(record models.ChangeRecord) string {
	return fmt.Sprintf(promptTemplate, buildContext(record))
}

func buildContext(record models.ChangeRecord) string {
	var parts []string

	switch record.Type {
	case models.ChangeTypeNewImages:
		parts = append(parts, "=== NEW IMAGES DETECTED ===")
		parts = append(parts, imageContext(record.Details.Images)...)
	case models.ChangeTypeRemovedImages:
		parts = append(parts, "=== REMOVED IMAGES DETECTED ===")
		parts = append(parts, imageContext(record.Details.Images)...)
	case models.ChangeTypeModifiedImages:
		parts = append(parts, "=== MODIFIED IMAGES DETECTED ===")
		for _, mod := range record.Details.ModifiedImages {
			for _, change := range mod.Changes {
				parts = append(parts, fmt.Sprintf("Image %s: attribute %s changed from '%s' to '%s'",
					mod.Src, change.Attribute, change.OldValue, change.NewValue))
			}
		}
	case models.ChangeTypeNewLinks:
		parts = append(parts, "=== NEW LINKS DETECTED ===")
		parts = append(parts, linkContext(record.Details.Links)...)
	case models.ChangeTypeRemovedLinks:
		parts = append(parts, "=== REMOVED LINKS DETECTED ===")
		parts = append(parts, linkContext(record.Details.Links)...)
	case models.ChangeTypeTextChange:
		parts = append(parts, "=== TEXT CHANGES DETECTED ===")
		for _, added := range record.Details.TextAdded {
			parts = append(parts, "New text added: "+added)
		}
		for _, removed := range record.Details.TextRemoved {
			parts = append(parts, "Text removed: "+removed)
		}
	case models.ChangeTypeStructureChange:
		parts = append(parts, "=== STRUCTURE CHANGES DETECTED ===")
		for _, heading := range record.Details.HeadingsAdded {
			parts = append(parts, headingContext("Block added", heading))
		}
		for _, heading := range record.Details.HeadingsRemoved {
			parts = append(parts, headingContext("Block removed", heading))
		}
	default:
		parts = append(parts, record.Description)
	}

	return strings.Join(parts, "\n")
}

func imageContext(images []models.ImageInfo) []string {
	lines := make([]string, 0, len(images))
	for _, img := range images {
		var fields []string
		if img.Alt != "" {
			fields = append(fields, "Alt text: "+img.Alt)
		}
		if img.Title != "" {
			fields = append(fields, "Title: "+img.Title)
		}
		if img.Src != "" {
			fields = append(fields, "Image URL: "+img.Src)
		}
		if len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " | "))
		}
	}
	return lines
}

func linkContext(links []models.LinkInfo) []string {
	lines := make([]string, 0, len(links))
	for _, link := range links {
		var fields []string
		if link.Text != "" {
			fields = append(fields, "Link text: "+link.Text)
		}
		if link.URL != "" {
			fields = append(fields, "URL: "+link.URL)
		}
		if link.Title != "" {
			fields = append(fields, "Title: "+link.Title)
		}
		if len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " | "))
		}
	}
	return lines
}

func headingContext(prefix string, heading models.HeadingBlock) string {
	if heading.Context != "" {
		return fmt.Sprintf("%s: %s | Context: %s", prefix, heading.Title, heading.Context)
	}
	return fmt.Sprintf("%s: %s", prefix, heading.Title)
}
