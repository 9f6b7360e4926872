package resilience

import "time"

// Failure describes one record whose enrichment did not complete.
type Failure struct {
	Index int       `json:"index"`
	URL   string    `json:"url"`
	Title string    `json:"titel,omitempty"`
	Stage string    `json:"stage"`
	Class Class     `json:"class"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// NewFailure classifies err and stamps the failure with the current time.
func NewFailure(index int, url, title, stage string, err error) Failure {
	return Failure{
		Index: index,
		URL:   url,
		Title: title,
		Stage: stage,
		Class: Classify(err),
		Error: err.Error(),
		At:    time.Now().UTC(),
	}
}
