package n8n

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/templatelab/harvester/internal/harvest"
)

// extraColumns is the fixed extras layout for n8n rows.
var extraColumns = []string{
	"description",
	"creator_name",
	"creator_verified",
	"total_views",
	"node_count",
	"apps_used",
	"created_at",
}

// Normalizer maps raw n8n workflow payloads onto canonical records. It
// is pure: the same input always yields the same output.
type Normalizer struct{}

// Normalize converts one workflow payload. An absent id or name yields
// no records.
func (Normalizer) Normalize(raw harvest.RawRecord) []harvest.Record {
	id := raw.Text("id")
	name := strings.TrimSpace(raw.Text("name"))
	if id == "" || name == "" {
		return nil
	}

	fields := map[string]string{
		"description": strings.TrimSpace(raw.Text("description")),
		"total_views": raw.Text("totalViews"),
		"created_at":  raw.Text("createdAt"),
	}

	if user, ok := raw["user"].(map[string]any); ok {
		creator := harvest.RawRecord(user)
		fields["creator_name"] = creator.Text("name")
		fields["creator_verified"] = creator.Text("verified")
	}

	if nodes, ok := raw["nodes"].([]any); ok {
		fields["node_count"] = strconv.Itoa(len(nodes))
		fields["apps_used"] = appsFromNodes(nodes)
	}

	return []harvest.Record{{
		Platform:   "n8n",
		PlatformID: id,
		Name:       name,
		URL:        fmt.Sprintf("https://n8n.io/workflows/%s", id),
		Fields:     fields,
		Order:      extraColumns,
	}}
}

// appsFromNodes collects the distinct node display names in first-seen
// order.
func appsFromNodes(nodes []any) string {
	seen := make(map[string]struct{}, len(nodes))
	var apps []string
	for _, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			continue
		}
		name := harvest.RawRecord(node).Text("displayName")
		if name == "" {
			name = harvest.RawRecord(node).Text("name")
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
