package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/media"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
	"gopkg.in/yaml.v3"
)

// abbreviateAfter is the data URI length past which rendered output shows a placeholder
const abbreviateAfter = 96

// Summary is a compact report of a catalog document
type Summary struct {
	Collections   map[string]int `json:"collections" yaml:"collections"`
	MediaKinds    map[string]int `json:"mediaKinds" yaml:"mediakinds"`
	MetadataOnly  []string       `json:"metadataOnly,omitempty" yaml:"metadataonly,omitempty"`
	TransientRefs []string       `json:"transientRefs,omitempty" yaml:"transientrefs,omitempty"`
	DocumentBytes int            `json:"documentBytes" yaml:"documentbytes"`
}

// Summarize counts collections and media kinds in doc
func Summarize(doc *models.CatalogDocument) (Summary, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to marshal document: %w", err)
	}

	s := Summary{
		Collections: map[string]int{
			"users":            len(doc.Users),
			"modules":          len(doc.Modules),
			"packages":         len(doc.Packages),
			"purchases":        len(doc.Purchases),
			"categories":       len(doc.Categories),
			"comments":         len(doc.Comments),
			"subscriptions":    len(doc.Subscriptions),
			"notifications":    len(doc.Notifications),
			"scheduledContent": len(doc.ScheduledContent),
			"contentBundles":   len(doc.ContentBundles),
			"uploadQueue":      len(doc.UploadQueue),
			"settings":         len(doc.Settings),
		},
		MediaKinds:    map[string]int{},
		TransientRefs: doc.TransientRefs(),
		DocumentBytes: len(data),
	}

	for key, carrier := range doc.MediaCarriers() {
		degraded := false
		for _, f := range carrier.MediaFields() {
			kind := models.ParseMediaAsset(*f.Value).Kind
			if kind != models.MediaNone {
				s.MediaKinds[string(kind)]++
			}
			if f.OriginalSize != nil && *f.OriginalSize != "" {
				degraded = true
			}
		}
		if degraded {
			s.MetadataOnly = append(s.MetadataOnly, key)
		}
	}
	sort.Strings(s.MetadataOnly)
	return s, nil
}

// WriteYAML renders v as YAML using its JSON field names.
// Long data URIs are replaced with a short placeholder unless full is set.
func WriteYAML(w io.Writer, v any, full bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	if !full {
		generic = abbreviate(generic)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// WriteJSON renders v as indented JSON, abbreviating data URIs unless full is set
func WriteJSON(w io.Writer, v any, full bool) error {
	if !full {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("failed to decode value: %w", err)
		}
		v = abbreviate(generic)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func abbreviate(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = abbreviate(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = abbreviate(val)
		}
		return t
	case string:
		return abbreviateDataURI(t)
	default:
		return v
	}
}

func abbreviateDataURI(s string) string {
	if len(s) <= abbreviateAfter || !strings.HasPrefix(strings.ToLower(s), "data:") {
		return s
	}
	mimeType := "application/octet-stream"
	if i := strings.IndexAny(s, ";,"); i > len("data:") {
		mimeType = s[len("data:"):i]
	}
	return fmt.Sprintf("<%s, %s>", mimeType, media.HumanSize(media.DecodedSize(s)))
}
