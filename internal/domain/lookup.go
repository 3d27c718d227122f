package domain

// LookupSource identifies which backend produced a lookup result.
type LookupSource string

// Lookup sources, in fallback order.
const (
	SourceDictionary   LookupSource = "dictionary"
	SourceEncyclopedia LookupSource = "encyclopedia"
)

// LookupResult is the transient state of a word lookup. It is never
// persisted; the lookup store holds exactly one current result.
type LookupResult struct {
	Word       string       `json:"word"`
	Source     LookupSource `json:"source"`
	Content    string       `json:"content,omitempty"`
	ArticleURL string       `json:"article_url,omitempty"`
	IsLoading  bool         `json:"is_loading"`
	Error      string       `json:"error,omitempty"`
}
