package models

import "github.com/newsroom-api/internal/content"

// ArticleView is the reader page payload for one article
type ArticleView struct {
	Article     *Article        `json:"article"`
	Blocks      []content.Block `json:"blocks"`
	ReadingTime int             `json:"readingTime"`
	Related     []Card          `json:"related"`
}

// CategoryListing is the published articles of one category
type CategoryListing struct {
	Category Category `json:"category"`
	Articles []Card   `json:"articles"`
}

// SearchResult is returned by article search. Message explains an empty
// result that was not searched at all.
type SearchResult struct {
	Query    string `json:"query"`
	Message  string `json:"message,omitempty"`
	Articles []Card `json:"articles"`
}

// ArticleCounts summarizes the article store
type ArticleCounts struct {
	Total     int `json:"total"`
	Published int `json:"published"`
}

// CacheCounts reports social card cache occupancy
type CacheCounts struct {
	Cards  int `json:"cards"`
	Assets int `json:"assets"`
}

// Stats is the operational summary served at /v1/stats
type Stats struct {
	Articles ArticleCounts `json:"articles"`
	Cache    CacheCounts   `json:"cache"`
}
