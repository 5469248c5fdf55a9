package prompt

import (
	"strings"

	"citeweb/internal/models"
)

// DefaultQuery stands in for the user turn when only URLs were supplied.
const DefaultQuery = "Summarize the key information from the provided sources."

type ComposeOptions struct {
	// EchoContext repeats the search section in the user turn for models
	// that follow the system turn loosely.
	EchoContext bool
}

// Compose returns exactly two turns, system then user. The output depends
// only on its arguments.
func Compose(query string, c Context, o ComposeOptions) []models.ChatTurn {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}

	user := query
	if o.EchoContext {
		user = query + "\n\n" + c.Search
	}

	return []models.ChatTurn{
		{Role: models.RoleSystem, Content: systemPrompt(c)},
		{Role: models.RoleUser, Content: user},
	}
}

func systemPrompt(c Context) string {
	parts := []string{
		"You are an academic expert. Base your response only on the context provided below.",
		"",
		"**Task:**",
		"1. Analyze the extracted data and give a comprehensive, informative and concise answer to the query.",
		"2. Cite sources inline using the format (Source N), where N is the number shown next to each source in the context.",
		"3. Keep the response original and well structured.",
		"",
		"**Context to Analyze:**",
		c.String(),
		"",
		"**Guidelines:**",
		"- Always cite sources when referencing specific content. For scraped content, cite the original URL.",
		"- If the information is insufficient, say so explicitly and suggest other ways to gather the required data. Do not make anything up.",
		"- Maintain a neutral and academic tone.",
		"- Do not include information outside the given context.",
	}
	return strings.Join(parts, "\n")
}
