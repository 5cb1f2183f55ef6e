package newsdata

// apiResponse is the latest-news endpoint response envelope.
type apiResponse struct {
	Status       string      `json:"status"`
	TotalResults int         `json:"totalResults"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Content     string `json:"content"`
	SourceID    string `json:"source_id"`
	Language    string `json:"language"`
	PubDate     string `json:"pubDate"`
}
