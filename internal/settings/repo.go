package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context) (*Settings, error) {
	s := &Settings{}
	query := `SELECT id, model, search_top_k, page_word_budget, corpus_word_budget, structured_word_budget, structured_max_entries, fetch_concurrency, include_structured, echo_context, detect_urls FROM settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ID, &s.Model, &s.SearchTopK, &s.PageWordBudget, &s.CorpusWordBudget,
		&s.StructuredWordBudget, &s.StructuredMaxEntries, &s.FetchConcurrency,
		&s.IncludeStructured, &s.EchoContext, &s.DetectURLs,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Settings) error {
	query := `
		UPDATE settings
		SET model = $1, search_top_k = $2, page_word_budget = $3, corpus_word_budget = $4, structured_word_budget = $5, structured_max_entries = $6, fetch_concurrency = $7, include_structured = $8, echo_context = $9, detect_urls = $10, updated_at = NOW()
		WHERE id = 1
	`
	_, err := r.db.ExecContext(ctx, query,
		s.Model, s.SearchTopK, s.PageWordBudget, s.CorpusWordBudget, s.StructuredWordBudget,
		s.StructuredMaxEntries, s.FetchConcurrency, s.IncludeStructured, s.EchoContext, s.DetectURLs,
	)
	return err
}
