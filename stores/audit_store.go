package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/b4llu97/jarvis/models"
	"gorm.io/gorm"
)

// QueryRecord is the audit entry of one processed query.
type QueryRecord struct {
	ID              string                         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt       time.Time                      `gorm:"index" json:"created_at"`
	Query           string                         `gorm:"type:text;not null" json:"query"`
	Response        string                         `gorm:"type:text" json:"response"`
	RawFirstPass    string                         `gorm:"type:text" json:"raw_first_pass_text"`
	RequestsJSON    string                         `gorm:"type:text" json:"-"`
	OutcomesJSON    string                         `gorm:"type:text" json:"-"`
	Requests        []models.ToolInvocationRequest `gorm:"-" json:"requests"`
	Outcomes        []models.ToolInvocationOutcome `gorm:"-" json:"outcomes"`
	Degraded        bool                           `json:"degraded"`
	SecondPassError string                         `gorm:"type:text" json:"second_pass_error,omitempty"`
	DurationMS      int64                          `json:"duration_ms"`
}

// NewQueryRecord captures a finished query for the audit trail.
func NewQueryRecord(query string, result *models.QueryResult) *QueryRecord {
	return &QueryRecord{
		ID:              result.ID,
		Query:           query,
		Response:        result.FinalResponse,
		RawFirstPass:    result.RawFirstPass,
		Requests:        result.Requests,
		Outcomes:        result.Outcomes,
		Degraded:        result.Degraded,
		SecondPassError: result.SecondPassError,
		DurationMS:      result.Duration.Milliseconds(),
	}
}

// Result rebuilds the QueryResult the record was made from.
func (r *QueryRecord) Result() *models.QueryResult {
	return &models.QueryResult{
		ID:              r.ID,
		FinalResponse:   r.Response,
		Requests:        r.Requests,
		Outcomes:        r.Outcomes,
		RawFirstPass:    r.RawFirstPass,
		Degraded:        r.Degraded,
		SecondPassError: r.SecondPassError,
		Duration:        time.Duration(r.DurationMS) * time.Millisecond,
	}
}

// BeforeSave marshals Requests and Outcomes to their JSON columns
func (r *QueryRecord) BeforeSave(tx *gorm.DB) error {
	requests, err := json.Marshal(nonNil(r.Requests))
	if err != nil {
		return err
	}
	outcomes, err := json.Marshal(nonNil(r.Outcomes))
	if err != nil {
		return err
	}
	r.RequestsJSON = string(requests)
	r.OutcomesJSON = string(outcomes)
	return nil
}

// AfterFind unmarshals the JSON columns back into Requests and Outcomes
func (r *QueryRecord) AfterFind(tx *gorm.DB) error {
	r.Requests = []models.ToolInvocationRequest{}
	r.Outcomes = []models.ToolInvocationOutcome{}
	if r.RequestsJSON != "" {
		if err := json.Unmarshal([]byte(r.RequestsJSON), &r.Requests); err != nil {
			return err
		}
	}
	if r.OutcomesJSON != "" {
		return json.Unmarshal([]byte(r.OutcomesJSON), &r.Outcomes)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// SaveQuery stores one audit record
func (s *GORMStore) SaveQuery(ctx context.Context, record *QueryRecord) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// GetQuery retrieves the audit record with the given query ID
func (s *GORMStore) GetQuery(ctx context.Context, id string) (*QueryRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	var records []QueryRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("query %q: %w", id, models.ErrNotFound)
	}
	return &records[0], nil
}

// ListQueries returns the most recent audit records, newest first
func (s *GORMStore) ListQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if limit <= 0 {
		limit = 50
	}
	records := []QueryRecord{}
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}
