package dto

// ListRunsQuery is the query string of the run history listing
type ListRunsQuery struct {
	Limit *int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// LimitOr returns the requested limit or def when none was given
func (q ListRunsQuery) LimitOr(def int) int {
	if q.Limit == nil {
		return def
	}
	return *q.Limit
}
