// Package fetcher retrieves the raw source page behind a publication URL.
package fetcher

import "context"

// Fetcher returns the body of the page at url as a UTF-8 string. Any
// failure is returned as an error; callers leave the record untouched.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
