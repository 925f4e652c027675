package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/b4llu97/jarvis/models"
	"gorm.io/gorm"
)

// Fact is one key/value pair in the household fact table.
type Fact struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Response renders the fact for the HTTP API.
func (f *Fact) Response() models.Fact_Response {
	created, updated := f.CreatedAt, f.UpdatedAt
	return models.Fact_Response{
		Key:        f.Key,
		Value:      f.Value,
		Created_At: &created,
		Updated_At: &updated,
	}
}

// Document is one searchable text chunk.
type Document struct {
	ID           uint              `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	Text         string            `gorm:"type:text;not null" json:"text"`
	MetadataJSON string            `gorm:"type:text" json:"-"`
	Metadata     map[string]string `gorm:"-" json:"metadata,omitempty"`
}

// BeforeSave marshals Metadata to MetadataJSON
func (d *Document) BeforeSave(tx *gorm.DB) error {
	if d.Metadata != nil {
		data, err := json.Marshal(d.Metadata)
		if err != nil {
			return err
		}
		d.MetadataJSON = string(data)
	}
	return nil
}

// AfterFind unmarshals MetadataJSON to Metadata
func (d *Document) AfterFind(tx *gorm.DB) error {
	if d.MetadataJSON != "" {
		return json.Unmarshal([]byte(d.MetadataJSON), &d.Metadata)
	}
	return nil
}

// FactStore persists household facts. GetFact returns an error matching
// models.ErrNotFound for unknown keys.
type FactStore interface {
	GetFact(ctx context.Context, key string) (*Fact, error)
	SetFact(ctx context.Context, key, value string) (*Fact, error)
	ListFacts(ctx context.Context) ([]Fact, error)
	DeleteFact(ctx context.Context, key string) error
}

// DocumentStore holds ingested text and answers keyword searches over it.
type DocumentStore interface {
	AddDocument(ctx context.Context, text string, metadata map[string]string) (*Document, error)
	Search(ctx context.Context, query string, maxResults int) ([]models.Search_Hit, error)
}

// AuditStore keeps a record of every processed query.
type AuditStore interface {
	SaveQuery(ctx context.Context, record *QueryRecord) error
	GetQuery(ctx context.Context, id string) (*QueryRecord, error)
	ListQueries(ctx context.Context, limit int) ([]QueryRecord, error)
}

// Store bundles every persistence concern behind one connection.
type Store interface {
	FactStore
	DocumentStore
	AuditStore

	// Connection management
	Ping() error
	Close() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite" or "postgres"
	Connection string            `json:"connection"` // file path or DSN
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
