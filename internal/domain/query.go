package domain

type SortKey string

const (
	SortDate   SortKey = "date"
	SortTitle  SortKey = "title"
	SortRating SortKey = "rating"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "ASC"
	OrderDesc SortOrder = "DESC"
)

// Unbounded is the Limit value that disables the row limit.
const Unbounded = -1

// ContentQuery selects items for the list renderer.
type ContentQuery struct {
	Status      ContentStatus
	RequireMeta string  // only items carrying this metadata key
	IDs         []int64 // empty means no restriction
	Sort        SortKey
	Order       SortOrder
	Limit       int
}
