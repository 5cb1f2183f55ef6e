package newscatcher

// searchRequest is the POST body for the v3 search endpoint.
type searchRequest struct {
	Query     string `json:"q"`
	Sources   string `json:"sources,omitempty"`
	Countries string `json:"countries"`
	Lang      string `json:"lang"`
	From      string `json:"from_"`
	To        string `json:"to_"`
	SortBy    string `json:"sort_by"`
	PageSize  int    `json:"page_size"`
}

// searchResponse is the subset of the v3 response the pipeline consumes.
type searchResponse struct {
	Status    string       `json:"status"`
	TotalHits int          `json:"total_hits"`
	Articles  []apiArticle `json:"articles"`
}

type apiArticle struct {
	Title         string `json:"title"`
	Link          string `json:"link"`
	Excerpt       string `json:"excerpt"`
	Description   string `json:"description"`
	NameSource    string `json:"name_source"`
	CleanURL      string `json:"clean_url"`
	Language      string `json:"language"`
	PublishedDate string `json:"published_date"`
}
