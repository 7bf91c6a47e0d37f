package models

import "time"

// ChangeType classifies one detected difference between two snapshots.
type ChangeType string

const (
	ChangeTypeNewImages       ChangeType = "new_images"
	ChangeTypeRemovedImages   ChangeType = "removed_images"
	ChangeTypeModifiedImages  ChangeType = "modified_images"
	ChangeTypeNewLinks        ChangeType = "new_links"
	ChangeTypeRemovedLinks    ChangeType = "removed_links"
	ChangeTypeTextChange      ChangeType = "text_change"
	ChangeTypeStructureChange ChangeType = "structure_change"
)

// AttributeChange records one attribute of an image that changed between
// two snapshots while the image itself was retained.
type AttributeChange struct {
	Attribute string `json:"attribute"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`
}

// ImageModification pairs an image with the attribute changes observed on it.
type ImageModification struct {
	Src     string            `json:"src"`
	Changes []AttributeChange `json:"changes"`
}

// ChangeDetails carries the type-specific delta of a ChangeRecord. Only the
// fields relevant to the record's type are populated.
type ChangeDetails struct {
	Images          []ImageInfo         `json:"images,omitempty"`
	ModifiedImages  []ImageModification `json:"modified_images,omitempty"`
	Links           []LinkInfo          `json:"links,omitempty"`
	TextAdded       []string            `json:"text_added,omitempty"`
	TextRemoved     []string            `json:"text_removed,omitempty"`
	HeadingsAdded   []HeadingBlock      `json:"headings_added,omitempty"`
	HeadingsRemoved []HeadingBlock      `json:"headings_removed,omitempty"`
}

// ChangeRecord is one detected, classified difference between two
// consecutive snapshots. Immutable once created; appended to exactly one
// job's ledger.
type ChangeRecord struct {
	Type        ChangeType    `json:"type"`
	Description string        `json:"description"`
	Details     ChangeDetails `json:"details"`
	Annotation  *Annotation   `json:"annotation,omitempty"`
	DetectedAt  time.Time     `json:"detected_at"`
}
