// Package domain – knowledge entry metadata and per-assistant JSON configs.
//
// KnowledgeEntry.Metadata is a tagged union keyed by the entry's SourceKind:
// faq entries carry a question/response pair, everything else carries
// free-form size/origin fields. The shape is enforced at construction time
// (NewFAQMetadata, NewSourceMetadata) instead of read-time casting.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFAQ is returned when a faq entry is constructed without both a
// question and a response.
var ErrInvalidFAQ = errors.New("faq metadata requires a non-empty question and response")

// FAQPair is the metadata payload of a faq entry.
type FAQPair struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// SourceInfo is the metadata payload of upload/text/website entries.
type SourceInfo struct {
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Origin    string `json:"origin,omitempty"`
}

// EntryMetadata is the kind-dependent variant attached to a knowledge entry.
// Exactly one of FAQ or Source is set, matching the entry's SourceKind.
type EntryMetadata struct {
	FAQ    *FAQPair    `json:"faq,omitempty"`
	Source *SourceInfo `json:"source,omitempty"`
}

// NewFAQMetadata builds metadata for a faq entry, rejecting blank halves so
// the matching invariant holds from the moment of creation.
func NewFAQMetadata(question, response string) (EntryMetadata, error) {
	question = strings.TrimSpace(question)
	response = strings.TrimSpace(response)
	if question == "" || response == "" {
		return EntryMetadata{}, ErrInvalidFAQ
	}
	return EntryMetadata{FAQ: &FAQPair{Question: question, Response: response}}, nil
}

// NewSourceMetadata builds metadata for upload/text/website entries.
func NewSourceMetadata(sizeBytes int64, origin string) EntryMetadata {
	return EntryMetadata{Source: &SourceInfo{SizeBytes: sizeBytes, Origin: strings.TrimSpace(origin)}}
}

// Value implements driver.Valuer, serializing the metadata as JSON text.
func (m EntryMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. NULL and empty values scan to the zero union.
func (m *EntryMetadata) Scan(src any) error {
	return scanJSON(src, m)
}

// DeploymentConfig carries publishing options for the embedded chat widget.
type DeploymentConfig struct {
	PrimaryColor   string   `json:"primary_color,omitempty"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`
}

// Value implements driver.Valuer.
func (c DeploymentConfig) Value() (driver.Value, error) { return valueJSON(c) }

// Scan implements sql.Scanner.
func (c *DeploymentConfig) Scan(src any) error { return scanJSON(src, c) }

// RateLimitConfig is the per-assistant sliding-window limit. Enabled == nil
// means "use the default" (limiting on); MaxCount/WindowSeconds <= 0 fall
// back to the service defaults.
type RateLimitConfig struct {
	Enabled       *bool `json:"enabled,omitempty"`
	MaxCount      int   `json:"max_count,omitempty"`
	WindowSeconds int   `json:"window_seconds,omitempty"`
}

// EffectiveEnabled reports whether limiting applies, treating unset as on.
func (c RateLimitConfig) EffectiveEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Effective returns the limit parameters with defaults applied.
func (c RateLimitConfig) Effective(defMax int, defWindow time.Duration) (max int, window time.Duration) {
	max, window = defMax, defWindow
	if c.MaxCount > 0 {
		max = c.MaxCount
	}
	if c.WindowSeconds > 0 {
		window = time.Duration(c.WindowSeconds) * time.Second
	}
	return max, window
}

// Value implements driver.Valuer.
func (c RateLimitConfig) Value() (driver.Value, error) { return valueJSON(c) }

// Scan implements sql.Scanner.
func (c *RateLimitConfig) Scan(src any) error { return scanJSON(src, c) }

// CacheConfig is the per-assistant response cache toggle. Enabled == nil
// means caching is on.
type CacheConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// EffectiveEnabled reports whether caching applies, treating unset as on.
func (c CacheConfig) EffectiveEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Value implements driver.Valuer.
func (c CacheConfig) Value() (driver.Value, error) { return valueJSON(c) }

// Scan implements sql.Scanner.
func (c *CacheConfig) Scan(src any) error { return scanJSON(src, c) }

func valueJSON(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(src, dst any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(s) == 0 {
			return nil
		}
		return json.Unmarshal(s, dst)
	case string:
		if s == "" {
			return nil
		}
		return json.Unmarshal([]byte(s), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
