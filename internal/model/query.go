package model

// ListQuery carries pagination, sorting and search options for list endpoints.
type ListQuery struct {
	Page      int
	Limit     int
	Sort      string // column name, "-" prefix for descending
	Search    string
	SearchCol string
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxPage          = 100_000
)

// Normalise clamps paging values into their valid ranges.
func (q ListQuery) Normalise() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	return q
}

// Offset returns the row offset of the current page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
