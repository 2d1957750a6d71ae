package makecom

import (
	"fmt"
	"strings"

	"github.com/templatelab/harvester/internal/harvest"
)

// extraColumns is the fixed extras layout for Make rows.
var extraColumns = []string{
	"description",
	"usage_count",
	"apps_used",
	"is_public",
}

// Normalizer maps raw Make template payloads onto canonical records. It
// is pure: the same input always yields the same output.
type Normalizer struct{}

// Normalize converts one template payload. An absent id or name yields
// no records.
func (Normalizer) Normalize(raw harvest.RawRecord) []harvest.Record {
	id := raw.Text("id")
	name := strings.TrimSpace(raw.Text("name"))
	if id == "" || name == "" {
		return nil
	}

	fields := map[string]string{
		"description": strings.TrimSpace(raw.Text("description")),
		"usage_count": raw.Text("usedCount"),
		"is_public":   raw.Text("public"),
		"apps_used":   appsFromPackages(raw),
	}

	url := raw.Text("url")
	if url == "" {
		url = fmt.Sprintf("https://www.make.com/en/templates/%s", id)
	}

	return []harvest.Record{{
		Platform:   "make",
		PlatformID: id,
		Name:       name,
		URL:        url,
		Fields:     fields,
		Order:      extraColumns,
	}}
}

// appsFromPackages joins the distinct app package names in first-seen
// order.
func appsFromPackages(raw harvest.RawRecord) string {
	packages, ok := raw["usedPackages"].([]any)
	if !ok {
		return ""
	}
	seen := make(map[string]struct{}, len(packages))
	var apps []string
	for _, p := range packages {
		var name string
		switch v := p.(type) {
		case string:
			name = v
		case map[string]any:
			name = harvest.RawRecord(v).Text("label")
			if name == "" {
				name = harvest.RawRecord(v).Text("name")
			}
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		apps = append(apps, name)
	}
	return strings.Join(apps, ", ")
}
