package zapier

import (
	"strings"

	"github.com/templatelab/harvester/internal/harvest"
)

// extraColumns is the fixed extras layout for Zapier rows.
var extraColumns = []string{
	"description",
	"apps_used",
	"meta_title",
}

// Normalizer maps extracted Zapier template pages onto canonical
// records. It is pure: the same input always yields the same output.
type Normalizer struct{}

// Normalize converts one extracted page. The slug identifies the
// template; the display name falls back through the scraped titles.
func (Normalizer) Normalize(raw harvest.RawRecord) []harvest.Record {
	url := raw.String("url")
	slug := raw.String("slug")
	if url == "" || slug == "" {
		return nil
	}

	name := firstNonEmpty(
		raw.Text("h1_title"),
		raw.Text("meta_title"),
		raw.Text("name"),
		raw.Text("title"),
	)
	if name == "" {
		return nil
	}

	return []harvest.Record{{
		Platform:   "zapier",
		PlatformID: slug,
		Name:       name,
		URL:        url,
		Fields: map[string]string{
			"description": strings.TrimSpace(raw.Text("description")),
			"apps_used":   raw.Text("apps_used"),
			"meta_title":  raw.Text("meta_title"),
		},
		Order: extraColumns,
	}}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
