package fetcher

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/rs/zerolog"
)

// navSelectors are removed from the document before any facet extraction.
var navSelectors = []string{
	"nav", "header", ".navbar", ".nav", ".menu", ".navigation",
	"[class*=nav]", "[class*=menu]", "[id*=nav]", "[id*=menu]",
	"script", "style", "noscript",
}

var headingSelector = "h1, h2, h3, h4, h5, h6"

// SnapshotExtractor builds PageSnapshots from rendered HTML. It is separate
// from the browser so extraction can be tested without one.
type SnapshotExtractor struct {
	logger zerolog.Logger
}

// NewSnapshotExtractor creates a new snapshot extractor.
func NewSnapshotExtractor(logger zerolog.Logger) *SnapshotExtractor {
	return &SnapshotExtractor{
		logger: logger.With().Str("component", "SnapshotExtractor").Logger(),
	}
}

// Extract parses rendered HTML into the snapshot facets used by the differ:
// normalized body text, images, non-navigation links and heading blocks.
func (se *SnapshotExtractor) Extract(url string, html string, fetchedAt time.Time) (*models.PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, common.WrapError(err, "failed to parse rendered HTML")
	}

	for _, selector := range navSelectors {
		doc.Find(selector).Remove()
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return nil, common.NewError("rendered document for '%s' has no body", url)
	}

	snapshot := &models.PageSnapshot{
		URL:       url,
		Text:      normalizeText(body.Text()),
		Images:    se.extractImages(body),
		Links:     se.extractLinks(body),
		Headings:  se.extractHeadings(body),
		FetchedAt: fetchedAt,
	}

	se.logger.Debug().
		Str("url", url).
		Int("text_length", len(snapshot.Text)).
		Int("images", len(snapshot.Images)).
		Int("links", len(snapshot.Links)).
		Int("headings", len(snapshot.Headings)).
		Msg("Extracted page snapshot")

	return snapshot, nil
}

func (se *SnapshotExtractor) extractImages(body *goquery.Selection) []models.ImageInfo {
	var images []models.ImageInfo
	body.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		if src == "" {
			src = sel.AttrOr("data-src", "")
		}
		if src == "" {
			return
		}

		img := models.ImageInfo{
			Src:    src,
			Alt:    sel.AttrOr("alt", ""),
			Title:  sel.AttrOr("title", ""),
			DataID: sel.AttrOr("data-id", ""),
			ElemID: sel.AttrOr("id", ""),
		}
		if isNavigationContent(img.Alt) || isNavigationContent(img.Title) {
			return
		}
		images = append(images, img)
	})
	return images
}

func (se *SnapshotExtractor) extractLinks(body *goquery.Selection) []models.LinkInfo {
	var links []models.LinkInfo
	body.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := normalizeText(sel.Text())
		if text == "" || isNavigationContent(text) {
			return
		}
		links = append(links, models.LinkInfo{
			URL:   sel.AttrOr("href", ""),
			Text:  text,
			Title: sel.AttrOr("title", ""),
		})
	})
	return links
}

// extractHeadings collects heading blocks with the text of their enclosing
// container as context, deduplicated by title.
func (se *SnapshotExtractor) extractHeadings(body *goquery.Selection) []models.HeadingBlock {
	var headings []models.HeadingBlock
	seen := make(map[string]struct{})

	body.Find(headingSelector).Each(func(_ int, sel *goquery.Selection) {
		title := normalizeText(sel.Text())
		if title == "" || isNavigationContent(title) {
			return
		}
		key := strings.ToUpper(title)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}

		context := ""
		if parent := sel.Parent(); parent.Length() > 0 {
			context = truncateRunes(normalizeText(parent.Text()), 200)
		}

		headings = append(headings, models.HeadingBlock{
			Title:   title,
			Tag:     goquery.NodeName(sel),
			Context: context,
		})
	})
	return headings
}

// normalizeText collapses all whitespace runs into single spaces.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
