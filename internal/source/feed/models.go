package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"post_importer/internal/domain"
)

// Entry is one untyped element of the feed array. Fields are kept raw so
// that each one can be checked against the expected shape.
type Entry struct {
	Title    json.RawMessage `json:"title"`
	Content  json.RawMessage `json:"content"`
	Category json.RawMessage `json:"category"`
	Rating   json.RawMessage `json:"rating"`
	SiteLink json.RawMessage `json:"site_link"`
	Image    json.RawMessage `json:"image"`
}

// ToArticle validates the entry and coerces it into a RemoteArticle.
func (e Entry) ToArticle() (domain.RemoteArticle, error) {
	var (
		a   domain.RemoteArticle
		err error
	)

	if a.Title, err = stringField("title", e.Title); err != nil {
		return a, err
	}
	if a.Title == "" {
		return a, fmt.Errorf("field title: missing or empty")
	}
	if a.Content, err = stringField("content", e.Content); err != nil {
		return a, err
	}
	if a.Category, err = stringField("category", e.Category); err != nil {
		return a, err
	}
	if a.Rating, err = ratingField(e.Rating); err != nil {
		return a, err
	}
	if a.SiteLink, err = stringField("site_link", e.SiteLink); err != nil {
		return a, err
	}
	if a.Image, err = stringField("image", e.Image); err != nil {
		return a, err
	}

	return a, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func stringField(name string, raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %s: expected string, got %s", name, raw)
	}
	return s, nil
}

// ratingField accepts a JSON number or string. Numbers are stored in plain
// decimal form so "1e1" and 10 sort the same way.
func ratingField(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		return stringField("rating", trimmed)
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("field rating: expected number or string, got %s", raw)
	}
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("field rating: %w", err)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
