package chat

import (
	"fmt"

	"citeweb/internal/apperr"
	"citeweb/internal/models"
)

// Assemble zips records with the sources they came from. Sources[i] in the
// result is the source cited as "(Source i+1)".
func Assemble(answer string, sources []models.CandidateSource, records []models.ExtractedRecord) (*models.ResponsePayload, error) {
	if len(records) != len(sources) {
		return nil, fmt.Errorf("%w: %d records for %d sources", apperr.ErrInternal, len(records), len(sources))
	}

	meta := make([]models.SourceMeta, len(sources))
	for i, src := range sources {
		rec := records[i]
		meta[i] = models.SourceMeta{
			Link:    src.Link,
			Title:   rec.Title,
			Heading: rec.Heading,
			Summary: rec.Summary,
			Author:  rec.Author,
		}
	}

	return &models.ResponsePayload{Answer: answer, Sources: meta}, nil
}
