package websearch

import "context"

// Unavailable stands in when no search engine could be configured. Every
// search fails with Err, which the pipeline reports as a warning.
type Unavailable struct {
	Err error
}

func (u Unavailable) Search(context.Context, string) ([]string, error) {
	return nil, u.Err
}
