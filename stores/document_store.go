package stores

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/b4llu97/jarvis/models"
)

// AddDocument stores one text chunk.
func (s *GORMStore) AddDocument(ctx context.Context, text string, metadata map[string]string) (*Document, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if strings.TrimSpace(text) == "" {
		return nil, &models.ValidationError{Field: "text", Message: "must not be empty"}
	}
	doc := &Document{Text: text, Metadata: metadata}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	return doc, nil
}

// Search ranks documents by the share of query terms they contain.
// Distance is 1 - matched/terms, so 0 is a perfect match; documents that
// match no term are not returned.
func (s *GORMStore) Search(ctx context.Context, query string, maxResults int) ([]models.Search_Hit, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	terms := Terms(query)
	if len(terms) == 0 || maxResults <= 0 {
		return []models.Search_Hit{}, nil
	}

	// Narrow in SQL, score in Go.
	tx := s.db.WithContext(ctx).Model(&Document{})
	clauses := make([]string, len(terms))
	args := make([]interface{}, len(terms))
	for i, term := range terms {
		clauses[i] = "LOWER(text) LIKE ?"
		args[i] = "%" + term + "%"
	}
	var docs []Document
	if err := tx.Where(strings.Join(clauses, " OR "), args...).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	type scored struct {
		doc      Document
		distance float64
	}
	ranked := make([]scored, 0, len(docs))
	for _, doc := range docs {
		words := make(map[string]struct{})
		for _, w := range Terms(doc.Text) {
			words[w] = struct{}{}
		}
		matched := 0
		for _, term := range terms {
			if _, ok := words[term]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		ranked = append(ranked, scored{doc: doc, distance: 1 - float64(matched)/float64(len(terms))})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].doc.ID < ranked[j].doc.ID
	})
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	hits := make([]models.Search_Hit, len(ranked))
	for i, r := range ranked {
		hits[i] = models.Search_Hit{Text: r.doc.Text, Metadata: r.doc.Metadata, Distance: r.distance}
	}
	return hits, nil
}

// Terms splits text into unique lower-case words of two or more letters or digits.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
