// Package domain defines the persistence models for assistants, knowledge
// entries, conversations, and the response cache. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Source kinds for knowledge entries.
const (
	SourceUpload  = "upload"
	SourceText    = "text"
	SourceWebsite = "website"
	SourceFAQ     = "faq"
)

// Message roles. The generative backend speaks "user"/"model", so the
// transcript does too.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Assistant is a configured answer agent owned by a user. Its knowledge
// entries, conversations, and cached responses all hang off it.
//
// RateLimit and Cache carry per-assistant overrides; both fall back to
// enabled-with-defaults when unset (see services.AnswerService).
type Assistant struct {
	ID            string           `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        string           `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_assistants"`
	Name          string           `json:"name"           gorm:"type:varchar(255);not null"`
	Description   string           `json:"description"    gorm:"type:text"`
	SystemPrompt  string           `json:"system_prompt"  gorm:"type:text;not null"`
	WelcomeMessage string          `json:"welcome_message" gorm:"type:text"`
	CoverImage    string           `json:"cover_image"    gorm:"type:text"`
	IsDemo        bool             `json:"is_demo"        gorm:"not null;default:false"`
	IsPublished   bool             `json:"is_published"   gorm:"not null;default:false"`
	ModelSelector string           `json:"model_selector" gorm:"type:varchar(128)"`
	Deployment    DeploymentConfig `json:"deployment_config" gorm:"type:text"`
	RateLimit     RateLimitConfig  `json:"rate_limit_config" gorm:"type:text"`
	Cache         CacheConfig      `json:"cache_config"   gorm:"type:text"`
	LastTrainedAt *time.Time       `json:"last_trained_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Assistant.
func (Assistant) TableName() string { return "assistants" }

// KnowledgeEntry is a unit of assistant-scoped reference content. Entries are
// created by the ingestion boundary and are read-only to the answer pipeline.
//
// Invariant: an entry with SourceKind == "faq" participates in matching and
// scoring only when its metadata carries a non-empty question and response
// (see FAQ()). Content may be empty for faq-only entries.
type KnowledgeEntry struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	AssistantID string         `json:"assistant_id" gorm:"type:char(36);not null;index:idx_assistant_entries"`
	Title       string         `json:"title"        gorm:"type:varchar(255);not null"`
	SourceKind  string         `json:"source_kind"  gorm:"type:varchar(16);not null;check:source_kind IN ('upload','text','website','faq')"`
	Content     string         `json:"content"      gorm:"type:text"`
	Metadata    EntryMetadata  `json:"metadata"     gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	Assistant Assistant `json:"-" gorm:"foreignKey:AssistantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for KnowledgeEntry.
func (KnowledgeEntry) TableName() string { return "knowledge_entries" }

// FAQ returns the question/response pair of a faq entry. ok is false for
// non-faq entries and for faq entries missing either half of the pair.
func (e *KnowledgeEntry) FAQ() (question, response string, ok bool) {
	if e.SourceKind != SourceFAQ || e.Metadata.FAQ == nil {
		return "", "", false
	}
	p := e.Metadata.FAQ
	if p.Question == "" || p.Response == "" {
		return "", "", false
	}
	return p.Question, p.Response, true
}

// Conversation is an append-only exchange between an end user and one
// assistant. Messages are never mutated, only appended.
type Conversation struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	AssistantID string         `json:"assistant_id" gorm:"type:char(36);not null;index:idx_assistant_convs"`
	Title       string         `json:"title"        gorm:"type:varchar(255);not null;default:'New Chat'"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	Assistant Assistant `json:"-" gorm:"foreignKey:AssistantID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single utterance within a conversation. Source records which
// routing branch produced a model message (faq, snippet, cache, greeting,
// refusal, or generative); it is empty for user messages.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	Role           string         `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','model')"`
	Content        string         `json:"content"         gorm:"type:text;not null"`
	Source         string         `json:"source,omitempty" gorm:"type:varchar(24)"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// CacheEntry stores a previously computed answer keyed by the assistant and
// the hash of the normalized question.
//
// Invariant: (assistant_id, question_hash) is unique; a second insert for an
// existing key is a no-op at the repository layer, not an error.
type CacheEntry struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	AssistantID  string    `json:"assistant_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_cache_assistant_question,priority:1"`
	QuestionHash string    `json:"question_hash" gorm:"type:char(64);not null;uniqueIndex:ux_cache_assistant_question,priority:2"`
	Question     string    `json:"question"      gorm:"type:text;not null"`
	Response     string    `json:"response"      gorm:"type:text;not null"`
	HitCount     int64     `json:"hit_count"     gorm:"not null;default:0"`
	LastUsedAt   time.Time `json:"last_used_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for CacheEntry.
func (CacheEntry) TableName() string { return "response_cache" }
