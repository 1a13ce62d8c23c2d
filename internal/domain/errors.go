package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNoAdministrator = errors.New("no administrator user")
)

// FeedFetchError aborts an import run: the feed could not be fetched or decoded.
type FeedFetchError struct {
	URL string
	Err error
}

func (e *FeedFetchError) Error() string {
	return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err)
}

func (e *FeedFetchError) Unwrap() error { return e.Err }

// ItemCreateError fails a single article.
type ItemCreateError struct {
	Title string
	Err   error
}

func (e *ItemCreateError) Error() string {
	return fmt.Sprintf("create item %q: %v", e.Title, e.Err)
}

func (e *ItemCreateError) Unwrap() error { return e.Err }

// ImageAttachError leaves the item in place without a thumbnail.
type ImageAttachError struct {
	ItemID int64
	URL    string
	Err    error
}

func (e *ImageAttachError) Error() string {
	return fmt.Sprintf("attach image %s to item %d: %v", e.URL, e.ItemID, e.Err)
}

func (e *ImageAttachError) Unwrap() error { return e.Err }
