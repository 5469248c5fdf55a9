package models

// CandidateSource is a URL considered for context extraction. Its position in
// the resolved list is its citation index.
type CandidateSource struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// ExtractedRecord is the parsed form of one CandidateSource.
type ExtractedRecord struct {
	Title      string `json:"title"`
	Heading    string `json:"heading"`
	Summary    string `json:"summary"`
	Author     string `json:"author"`
	Content    string `json:"content"`
	SourceLink string `json:"sourceLink"`
	Fallback   bool   `json:"-"`
}

type Heading struct {
	Text string `json:"heading"`
	Tag  string `json:"tag"`
}

type PageContent struct {
	Title      string    `json:"title"`
	Headings   []Heading `json:"headings"`
	Paragraphs []string  `json:"paragraphs"`
}

// StructuredPage is pre-extracted page content. A nil Content means the page
// could not be captured; Error then carries the reason.
type StructuredPage struct {
	URL     string       `json:"url"`
	Content *PageContent `json:"content"`
	Error   string       `json:"error,omitempty"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SourceMeta struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Heading string `json:"heading"`
	Summary string `json:"summary"`
	Author  string `json:"author"`
}

// ResponsePayload binds the answer's "(Source N)" markers to Sources[N-1].
type ResponsePayload struct {
	Answer  string       `json:"answer"`
	Sources []SourceMeta `json:"sources"`
}
