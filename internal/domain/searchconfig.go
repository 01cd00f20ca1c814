package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SearchConfig is the fully resolved, immutable configuration for one proxy
// invocation. Resolution layers, highest precedence first: per-request
// override, deployment environment, built-in defaults.
type SearchConfig struct {
	Endpoint              string
	Region                string
	Service               string
	Index                 string
	TopK                  int
	MaxTokens             int
	PrimaryContentField   string
	FallbackContentFields []string
	MetadataFields        []string
	EmbeddingModelID      string
	AnswerModelID         string
	// ModelRegion is the region of the embedding/generation models; it may
	// differ from the search backend region.
	ModelRegion string
}

// Defaults returns the built-in configuration layer.
func Defaults() SearchConfig {
	return SearchConfig{
		Service:               "es",
		TopK:                  5,
		MaxTokens:             1000,
		PrimaryContentField:   "text",
		FallbackContentFields: []string{"markdown", "summary"},
		MetadataFields: []string{
			"title", "section_title", "doc_name",
			"chunk_type", "chunk_subtype", "page_indices",
		},
	}
}

// ConfigOverride carries per-request configuration. Absent and empty fields
// fall through to the deployment layer.
type ConfigOverride struct {
	Endpoint              string    `json:"endpoint"`
	Region                string    `json:"region"`
	Index                 string    `json:"index"`
	TopK                  int       `json:"topK"`
	MaxTokens             int       `json:"maxTokens"`
	PrimaryContentField   string    `json:"primaryContentField"`
	FallbackContentFields FieldList `json:"fallbackContentFields"`
	MetadataFields        FieldList `json:"metadataFields"`
	EmbeddingModelID      string    `json:"embeddingModelId"`
	AnswerModelID         string    `json:"answerModelId"`
	ModelRegion           string    `json:"bedrockRegion"`
}

// FieldList decodes either a JSON array of strings or a comma-separated string.
type FieldList []string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FieldList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("field list: %w", err)
		}
		*f = ParseFieldList(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("field list: %w", err)
	}
	*f = list
	return nil
}

// ParseFieldList splits a comma-separated field list, dropping empty segments.
func ParseFieldList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve merges the built-in defaults, the deployment layer and the
// per-request override into one effective configuration. A field is taken
// from a layer only if it is non-empty there.
func Resolve(env SearchConfig, override *ConfigOverride) SearchConfig {
	cfg := Defaults()
	overlay(&cfg, env)
	if override != nil {
		overlay(&cfg, SearchConfig{
			Endpoint:              override.Endpoint,
			Region:                override.Region,
			Index:                 override.Index,
			TopK:                  override.TopK,
			MaxTokens:             override.MaxTokens,
			PrimaryContentField:   override.PrimaryContentField,
			FallbackContentFields: override.FallbackContentFields,
			MetadataFields:        override.MetadataFields,
			EmbeddingModelID:      override.EmbeddingModelID,
			AnswerModelID:         override.AnswerModelID,
			ModelRegion:           override.ModelRegion,
		})
	}

	if cfg.Region == "" {
		cfg.Region = regionFromEndpoint(cfg.Endpoint)
	}
	if cfg.ModelRegion == "" {
		cfg.ModelRegion = cfg.Region
	}
	return cfg
}

func overlay(dst *SearchConfig, src SearchConfig) {
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Region != "" {
		dst.Region = src.Region
	}
	if src.Service != "" {
		dst.Service = src.Service
	}
	if src.Index != "" {
		dst.Index = src.Index
	}
	if src.TopK > 0 {
		dst.TopK = src.TopK
	}
	if src.MaxTokens > 0 {
		dst.MaxTokens = src.MaxTokens
	}
	if src.PrimaryContentField != "" {
		dst.PrimaryContentField = src.PrimaryContentField
	}
	if len(src.FallbackContentFields) > 0 {
		dst.FallbackContentFields = src.FallbackContentFields
	}
	if len(src.MetadataFields) > 0 {
		dst.MetadataFields = src.MetadataFields
	}
	if src.EmbeddingModelID != "" {
		dst.EmbeddingModelID = src.EmbeddingModelID
	}
	if src.AnswerModelID != "" {
		dst.AnswerModelID = src.AnswerModelID
	}
	if src.ModelRegion != "" {
		dst.ModelRegion = src.ModelRegion
	}
}

// regionShaped matches region-like host segments, e.g. ap-southeast-2.
var regionShaped = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d+$`)

// regionFromEndpoint derives the signing region from the endpoint host,
// e.g. https://search-x.ap-southeast-2.es.amazonaws.com -> ap-southeast-2.
func regionFromEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	for _, seg := range strings.Split(u.Hostname(), ".") {
		if regionShaped.MatchString(seg) {
			return seg
		}
	}
	return ""
}

// ValidateFor checks that every field required by the operation is present.
// It either passes or returns a ConfigError naming all missing fields; a
// partially valid configuration never proceeds.
func (c SearchConfig) ValidateFor(op Operation, generateAnswer bool) error {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Region == "" {
		missing = append(missing, "region")
	}
	if op == OpAsk {
		if c.Index == "" {
			missing = append(missing, "index")
		}
		if c.EmbeddingModelID == "" {
			missing = append(missing, "embeddingModelId")
		}
		if generateAnswer && c.AnswerModelID == "" {
			missing = append(missing, "answerModelId")
		}
	}
	if len(missing) > 0 {
		return NewConfigError(missing...)
	}
	return nil
}

// SourceFields returns the _source projection: the primary content field,
// then fallback content fields, then metadata fields, as an order-preserving
// union with duplicates removed.
func (c SearchConfig) SourceFields() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(f string) {
		if f == "" {
			return
		}
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	add(c.PrimaryContentField)
	for _, f := range c.FallbackContentFields {
		add(f)
	}
	for _, f := range c.MetadataFields {
		add(f)
	}
	return out
}
