package settings

import (
	"context"
	"fmt"

	"citeweb/internal/apperr"
)

// Settings are the runtime knobs of the answer pipeline. Zero values mean
// "use the configured default".
type Settings struct {
	ID                   int    `json:"-"`
	Model                string `json:"model"`
	SearchTopK           int    `json:"search_top_k"`
	PageWordBudget       int    `json:"page_word_budget"`
	CorpusWordBudget     int    `json:"corpus_word_budget"`
	StructuredWordBudget int    `json:"structured_word_budget"`
	StructuredMaxEntries int    `json:"structured_max_entries"`
	FetchConcurrency     int    `json:"fetch_concurrency"`
	IncludeStructured    bool   `json:"include_structured"`
	EchoContext          bool   `json:"echo_context"`
	DetectURLs           bool   `json:"detect_urls"`
}

// Validate rejects out-of-range values. Zero is always allowed.
func (s *Settings) Validate() error {
	switch {
	case s.SearchTopK < 0 || s.SearchTopK > 10:
		return fmt.Errorf("%w: search_top_k must be between 1 and 10", apperr.ErrValidation)
	case s.PageWordBudget < 0, s.CorpusWordBudget < 0, s.StructuredWordBudget < 0, s.StructuredMaxEntries < 0:
		return fmt.Errorf("%w: budgets must be positive", apperr.ErrValidation)
	case s.FetchConcurrency < 0 || s.FetchConcurrency > 32:
		return fmt.Errorf("%w: fetch_concurrency must be between 1 and 32", apperr.ErrValidation)
	}
	return nil
}

// Patch is a partial update. Nil fields keep their stored value.
type Patch struct {
	Model                *string `json:"model"`
	SearchTopK           *int    `json:"search_top_k"`
	PageWordBudget       *int    `json:"page_word_budget"`
	CorpusWordBudget     *int    `json:"corpus_word_budget"`
	StructuredWordBudget *int    `json:"structured_word_budget"`
	StructuredMaxEntries *int    `json:"structured_max_entries"`
	FetchConcurrency     *int    `json:"fetch_concurrency"`
	IncludeStructured    *bool   `json:"include_structured"`
	EchoContext          *bool   `json:"echo_context"`
	DetectURLs           *bool   `json:"detect_urls"`
}

// Apply copies the set fields of p onto set.
func (p *Patch) Apply(set *Settings) {
	if p.Model != nil {
		set.Model = *p.Model
	}
	setInt(&set.SearchTopK, p.SearchTopK)
	setInt(&set.PageWordBudget, p.PageWordBudget)
	setInt(&set.CorpusWordBudget, p.CorpusWordBudget)
	setInt(&set.StructuredWordBudget, p.StructuredWordBudget)
	setInt(&set.StructuredMaxEntries, p.StructuredMaxEntries)
	setInt(&set.FetchConcurrency, p.FetchConcurrency)
	setBool(&set.IncludeStructured, p.IncludeStructured)
	setBool(&set.EchoContext, p.EchoContext)
	setBool(&set.DetectURLs, p.DetectURLs)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo     Repository
	defaults Settings
}

// NewService serves repo values with zero fields filled from defaults.
func NewService(repo Repository, defaults Settings) *Service {
	return &Service{repo: repo, defaults: defaults}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	set, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	merged := s.withDefaults(*set)
	return &merged, nil
}

// Defaults returns the configured defaults, used when the store is unavailable.
func (s *Service) Defaults() Settings {
	return s.defaults
}

// Update merges p onto the stored row, so fields absent from the request
// keep their current value.
func (s *Service) Update(ctx context.Context, p *Patch) error {
	var incoming Settings
	p.Apply(&incoming)
	if err := incoming.Validate(); err != nil {
		return err
	}

	current, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}
	p.Apply(current)
	if err := current.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, current)
}

func (s *Service) withDefaults(set Settings) Settings {
	d := s.defaults
	if set.Model == "" {
		set.Model = d.Model
	}
	if set.SearchTopK == 0 {
		set.SearchTopK = d.SearchTopK
	}
	if set.PageWordBudget == 0 {
		set.PageWordBudget = d.PageWordBudget
	}
	if set.CorpusWordBudget == 0 {
		set.CorpusWordBudget = d.CorpusWordBudget
	}
	if set.StructuredWordBudget == 0 {
		set.StructuredWordBudget = d.StructuredWordBudget
	}
	if set.StructuredMaxEntries == 0 {
		set.StructuredMaxEntries = d.StructuredMaxEntries
	}
	if set.FetchConcurrency == 0 {
		set.FetchConcurrency = d.FetchConcurrency
	}
	return set
}
