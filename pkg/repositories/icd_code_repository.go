package repositories

import (
	"context"
	"fmt"

	"github.com/ayubridge/mapping-engine/pkg/database"
)

// ICDCode is one row of the locally held ICD-11 release copy. The ingestion
// pipeline populates the table; this engine only searches it.
type ICDCode struct {
	Code       string
	Title      string
	Definition string
	Chapter    string
	TM2        bool
	// Rank is the text-search relevance for the query that returned it.
	Rank float64
}

// ICDCodeRepository is the local lexical index: Postgres full-text search
// over the ICD-11 release copy with relevance ranking.
type ICDCodeRepository interface {
	Search(ctx context.Context, query string, limit int) ([]*ICDCode, error)
	GetByCode(ctx context.Context, code string) (*ICDCode, error)
}

type icdCodeRepository struct {
	db *database.DB
}

// NewICDCodeRepository creates a new ICDCodeRepository.
func NewICDCodeRepository(db *database.DB) ICDCodeRepository {
	return &icdCodeRepository{db: db}
}

var _ ICDCodeRepository = (*icdCodeRepository)(nil)

func (r *icdCodeRepository) Search(ctx context.Context, query string, limit int) ([]*ICDCode, error) {
	// websearch_to_tsquery tolerates free-form user vocabulary; code is the
	// final sort key so equal-rank results come back in a stable order.
	sql := `
		SELECT code, title, COALESCE(definition, ''), COALESCE(chapter, ''), tm2,
		       ts_rank(search_vector, websearch_to_tsquery('english', $1)) AS rank
		FROM engine_icd_codes
		WHERE search_vector @@ websearch_to_tsquery('english', $1)
		ORDER BY rank DESC, code
		LIMIT $2`
	rows, err := r.db.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search icd codes: %w", err)
	}
	defer rows.Close()

	var codes []*ICDCode
	for rows.Next() {
		var c ICDCode
		if err := rows.Scan(&c.Code, &c.Title, &c.Definition, &c.Chapter, &c.TM2, &c.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan icd code: %w", err)
		}
		codes = append(codes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating icd codes: %w", err)
	}
	return codes, nil
}

func (r *icdCodeRepository) GetByCode(ctx context.Context, code string) (*ICDCode, error) {
	sql := `
		SELECT code, title, COALESCE(definition, ''), COALESCE(chapter, ''), tm2
		FROM engine_icd_codes
		WHERE code = $1`
	var c ICDCode
	if err := r.db.QueryRow(ctx, sql, code).Scan(&c.Code, &c.Title, &c.Definition, &c.Chapter, &c.TM2); err != nil {
		return nil, fmt.Errorf("failed to get icd code %q: %w", code, err)
	}
	return &c, nil
}
