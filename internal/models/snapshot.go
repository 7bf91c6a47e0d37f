package models

import (
	"strings"
	"time"
)

// ImageInfo describes one image extracted from a rendered page.
type ImageInfo struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	Title  string `json:"title,omitempty"`
	DataID string `json:"data_id,omitempty"`
	ElemID string `json:"elem_id,omitempty"`
}

// UniqueKey builds a composite identifier so that an image is tracked even
// when only some of its attributes are present.
func (img ImageInfo) UniqueKey() string {
	parts := make([]string, 0, 4)
	if img.Src != "" {
		parts = append(parts, "src:"+img.Src)
	}
	if img.DataID != "" {
		parts = append(parts, "data-id:"+img.DataID)
	}
	if img.ElemID != "" {
		parts = append(parts, "id:"+img.ElemID)
	}
	if img.Alt != "" {
		alt := img.Alt
		if len(alt) > 50 {
			alt = alt[:50]
		}
		parts = append(parts, "alt:"+alt)
	}
	if len(parts) == 0 {
		return img.Src
	}
	return strings.Join(parts, " | ")
}

// LinkInfo describes one hyperlink extracted from a rendered page.
type LinkInfo struct {
	URL   string `json:"url"`
	Text  string `json:"text,omitempty"`
	Title string `json:"title,omitempty"`
}

// Key identifies a link by target and visible text, matching the identity
// used when diffing consecutive snapshots.
func (l LinkInfo) Key() string {
	return l.URL + "|" + l.Text
}

// HeadingBlock is a structural marker: a heading and the text of its
// enclosing container.
type HeadingBlock struct {
	Title   string `json:"title"`
	Tag     string `json:"tag,omitempty"`
	Context string `json:"context,omitempty"`
}

// PageSnapshot is a point-in-time representation of a fetched page. The
// engine keeps at most one previous snapshot per job as the diff baseline.
type PageSnapshot struct {
	URL       string         `json:"url"`
	Text      string         `json:"text"`
	Images    []ImageInfo    `json:"images,omitempty"`
	Links     []LinkInfo     `json:"links,omitempty"`
	Headings  []HeadingBlock `json:"headings,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}
