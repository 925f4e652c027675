package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/b4llu97/jarvis/models"
	"gorm.io/gorm"
)

// GetFact returns the fact stored under key.
func (s *GORMStore) GetFact(ctx context.Context, key string) (*Fact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	// Find instead of First so a miss does not log "record not found".
	var facts []Fact
	if err := s.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&facts).Error; err != nil {
		return nil, fmt.Errorf("failed to read fact %q: %w", key, err)
	}
	if len(facts) == 0 {
		return nil, fmt.Errorf("fact %q: %w", key, models.ErrNotFound)
	}
	return &facts[0], nil
}

// SetFact creates or overwrites the fact stored under key.
func (s *GORMStore) SetFact(ctx context.Context, key, value string) (*Fact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, &models.ValidationError{Field: "key", Message: "must not be empty"}
	}

	var fact Fact
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []Fact
		if err := tx.Where("key = ?", key).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) == 0 {
			fact = Fact{Key: key, Value: value}
			return tx.Create(&fact).Error
		}
		fact = existing[0]
		fact.Value = value
		return tx.Save(&fact).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store fact %q: %w", key, err)
	}
	return &fact, nil
}

// ListFacts returns every fact ordered by key.
func (s *GORMStore) ListFacts(ctx context.Context) ([]Fact, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	facts := []Fact{}
	err := s.db.WithContext(ctx).Order("key ASC").Find(&facts).Error
	return facts, err
}

// DeleteFact removes the fact stored under key.
func (s *GORMStore) DeleteFact(ctx context.Context, key string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	res := s.db.WithContext(ctx).Where("key = ?", key).Delete(&Fact{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete fact %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("fact %q: %w", key, models.ErrNotFound)
	}
	return nil
}
