package pagination

// Meta is the pagination block of a list response.
type Meta struct {
	Total   int64 `json:"total"`
	Skip    int   `json:"skip"`
	Take    int   `json:"take"`
	HasMore bool  `json:"hasMore"`
}

// NewMeta builds pagination metadata from a total and the page window.
func NewMeta(total int64, skip, take int) Meta {
	return Meta{
		Total:   total,
		Skip:    skip,
		Take:    take,
		HasMore: int64(skip)+int64(take) < total,
	}
}
