package differ

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aleister1102/pagewatch/internal/models"
)

// imageAttributesToCheck are the attributes compared on images retained
// between two snapshots.
var imageAttributesToCheck = []string{"alt", "title", "data-id", "id"}

// diffImages emits new_images, removed_images and modified_images records,
// in that order. Image identity is the composite UniqueKey.
func diffImages(old, current []models.ImageInfo, detectedAt time.Time) []models.ChangeRecord {
	oldByKey := imagesByKey(old)
	newByKey := imagesByKey(current)

	var records []models.ChangeRecord

	if added := selectImages(newByKey, missingKeys(newByKey, oldByKey)); len(added) > 0 {
		records = append(records, models.ChangeRecord{
			Type:        models.ChangeTypeNewImages,
			Description: fmt.Sprintf("%d new images found", len(added)),
			Details:     models.ChangeDetails{Images: added},
			DetectedAt:  detectedAt,
		})
	}

	if removed := selectImages(oldByKey, missingKeys(oldByKey, newByKey)); len(removed) > 0 {
		records = append(records, models.ChangeRecord{
			Type:        models.ChangeTypeRemovedImages,
			Description: describeRemovedImages(removed),
			Details:     models.ChangeDetails{Images: removed},
			DetectedAt:  detectedAt,
		})
	}

	if modified := modifiedImages(oldByKey, newByKey); len(modified) > 0 {
		records = append(records, models.ChangeRecord{
			Type:        models.ChangeTypeModifiedImages,
			Description: describeModifiedImages(modified),
			Details:     models.ChangeDetails{ModifiedImages: modified},
			DetectedAt:  detectedAt,
		})
	}

	return records
}

func imagesByKey(images []models.ImageInfo) map[string]models.ImageInfo {
	byKey := make(map[string]models.ImageInfo, len(images))
	for _, img := range images {
		byKey[img.UniqueKey()] = img
	}
	return byKey
}

// missingKeys returns the sorted keys of a that are absent from b.
func missingKeys(a, b map[string]models.ImageInfo) []string {
	var keys []string
	for key := range a {
		if _, ok := b[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func selectImages(byKey map[string]models.ImageInfo, keys []string) []models.ImageInfo {
	if len(keys) == 0 {
		return nil
	}
	images := make([]models.ImageInfo, 0, len(keys))
	for _, key := range keys {
		images = append(images, byKey[key])
	}
	return images
}

func modifiedImages(oldByKey, newByKey map[string]models.ImageInfo) []models.ImageModification {
	var commonKeys []string
	for key := range oldByKey {
		if _, ok := newByKey[key]; ok {
			commonKeys = append(commonKeys, key)
		}
	}
	sort.Strings(commonKeys)

	var modified []models.ImageModification
	for _, key := range commonKeys {
		oldImg, newImg := oldByKey[key], newByKey[key]
		changes := attributeChanges(oldImg, newImg)
		if len(changes) > 0 {
			modified = append(modified, models.ImageModification{
				Src:     newImg.Src,
				Changes: changes,
			})
		}
	}
	return modified
}

func attributeChanges(oldImg, newImg models.ImageInfo) []models.AttributeChange {
	var changes []models.AttributeChange
	for _, attr := range imageAttributesToCheck {
		oldVal := imageAttribute(oldImg, attr)
		newVal := imageAttribute(newImg, attr)
		if oldVal != newVal {
			changes = append(changes, models.AttributeChange{
				Attribute: attr,
				OldValue:  oldVal,
				NewValue:  newVal,
			})
		}
	}
	return changes
}

func imageAttribute(img models.ImageInfo, attr string) string {
	switch attr {
	case "alt":
		return img.Alt
	case "title":
		return img.Title
	case "data-id":
		return img.DataID
	case "id":
		return img.ElemID
	default:
		return ""
	}
}

func describeRemovedImages(removed []models.ImageInfo) string {
	parts := []string{fmt.Sprintf("%d images removed", len(removed))}

	var examples []string
	for _, img := range removed {
		if img.Alt != "" {
			examples = append(examples, img.Alt)
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

func describeModifiedImages(modified []models.ImageModification) string {
	attrSet := make(map[string]struct{})
	for _, mod := range modified {
		for _, change := range mod.Changes {
			attrSet[change.Attribute] = struct{}{}
		}
	}
	attrs := make([]string, 0, len(attrSet))
	for attr := range attrSet {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	return fmt.Sprintf("%d images modified | Changed attributes: %s", len(modified), strings.Join(attrs, ", "))
}
