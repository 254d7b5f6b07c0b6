package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayubridge/mapping-engine/pkg/database"
	"github.com/ayubridge/mapping-engine/pkg/models"
)

// TermRepository reads the ingested source terminology. Ingestion itself
// (CSV/authoring formats) happens upstream; the engine only needs the Term
// shape back out.
type TermRepository interface {
	ListAll(ctx context.Context) ([]*models.Term, error)
}

type termRepository struct {
	db *database.DB
}

// NewTermRepository creates a new TermRepository.
func NewTermRepository(db *database.DB) TermRepository {
	return &termRepository{db: db}
}

var _ TermRepository = (*termRepository)(nil)

func (r *termRepository) ListAll(ctx context.Context) ([]*models.Term, error) {
	query := `
		SELECT code, display, COALESCE(definition, ''), system_uri,
		       COALESCE(synonyms, '[]'), COALESCE(categories, '[]'), COALESCE(properties, '{}')
		FROM engine_source_terms
		ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query source terms: %w", err)
	}
	defer rows.Close()

	var terms []*models.Term
	for rows.Next() {
		var t models.Term
		var synonyms, categories, properties []byte
		if err := rows.Scan(&t.Code, &t.Display, &t.Definition, &t.SystemURI, &synonyms, &categories, &properties); err != nil {
			return nil, fmt.Errorf("failed to scan source term: %w", err)
		}
		if err := json.Unmarshal(synonyms, &t.Synonyms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal synonyms for %s: %w", t.Code, err)
		}
		if err := json.Unmarshal(categories, &t.Categories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal categories for %s: %w", t.Code, err)
		}
		if err := json.Unmarshal(properties, &t.Properties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal properties for %s: %w", t.Code, err)
		}
		terms = append(terms, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source terms: %w", err)
	}
	return terms, nil
}
