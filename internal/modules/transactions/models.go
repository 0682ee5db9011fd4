package transactions

import "time"

// ListRequest selects a page of an asset's transaction history.
type ListRequest struct {
	PortfolioID string
	AssetType   string
	AssetID     int64
	PageSize    int
	PageNumber  int
	Type        string // all, in, out
	StartDate   *time.Time
	EndDate     *time.Time
}

// normalize applies the defaults the paging endpoints guarantee.
func (r *ListRequest) normalize() {
	if r.PageSize <= 0 || r.PageSize > 200 {
		r.PageSize = 50
	}
	if r.PageNumber <= 0 {
		r.PageNumber = 1
	}
	switch r.Type {
	case "in", "out":
	default:
		r.Type = "all"
	}
}
