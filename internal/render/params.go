package render

import (
	"net/url"
	"strconv"
	"strings"

	"post_importer/internal/domain"
)

// Recognized attribute names.
const (
	AttrTitle = "title"
	AttrCount = "count"
	AttrSort  = "sort"
	AttrOrder = "order"
	AttrIDs   = "ids"
)

// Params holds the display options of one list.
type Params struct {
	Title string
	Count int
	Sort  domain.SortKey
	Order domain.SortOrder
	IDs   []int64

	// idsGiven is set when the ids attribute was non-empty, even if
	// none of its entries parsed.
	idsGiven bool
}

func DefaultParams() Params {
	return Params{
		Count: domain.Unbounded,
		Sort:  domain.SortDate,
		Order: domain.OrderDesc,
	}
}

// ParseParams reads attrs into Params. Unknown attributes are ignored and
// unusable values fall back to their defaults.
func ParseParams(attrs map[string]string) Params {
	p := DefaultParams()

	for k, v := range attrs {
		v = strings.TrimSpace(v)

		switch strings.ToLower(strings.TrimSpace(k)) {
		case AttrTitle:
			p.Title = v
		case AttrCount:
			if n, err := strconv.Atoi(v); err == nil {
				p.Count = n
			}
		case AttrSort:
			p.Sort = parseSort(v)
		case AttrOrder:
			p.Order = parseOrder(v)
		case AttrIDs:
			if v != "" {
				p.idsGiven = true
				p.IDs = parseIDs(v)
			}
		}
	}

	return p
}

func parseSort(v string) domain.SortKey {
	switch key := domain.SortKey(strings.ToLower(v)); key {
	case domain.SortDate, domain.SortTitle, domain.SortRating:
		return key
	}
	return domain.SortDate
}

func parseOrder(v string) domain.SortOrder {
	switch order := domain.SortOrder(strings.ToUpper(v)); order {
	case domain.OrderAsc, domain.OrderDesc:
		return order
	}
	return domain.OrderDesc
}

// parseIDs keeps the positive integers of a comma separated list, once each.
func parseIDs(v string) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, part := range strings.Split(v, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Query translates p into a store query. ok is false when an ids filter
// was requested but no identifier in it was valid, so nothing can match.
func (p Params) Query() (q domain.ContentQuery, ok bool) {
	if p.idsGiven && len(p.IDs) == 0 {
		return domain.ContentQuery{}, false
	}

	limit := p.Count
	if limit <= 0 {
		limit = domain.Unbounded
	}

	return domain.ContentQuery{
		Status:      domain.StatusPublished,
		RequireMeta: domain.MetaCustomRating,
		IDs:         p.IDs,
		Sort:        p.Sort,
		Order:       p.Order,
		Limit:       limit,
	}, true
}

// Key is a canonical form of p, stable across attribute order.
func (p Params) Key() string {
	v := url.Values{}
	v.Set(AttrTitle, p.Title)
	v.Set(AttrCount, strconv.Itoa(p.Count))
	v.Set(AttrSort, string(p.Sort))
	v.Set(AttrOrder, string(p.Order))

	ids := make([]string, len(p.IDs))
	for i, id := range p.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	v.Set(AttrIDs, strings.Join(ids, ","))
	if p.idsGiven {
		v.Set("ids_given", "1")
	}

	return v.Encode()
}
