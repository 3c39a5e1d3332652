package compute

import "posync/internal/domain"

// Paginate computes page metadata. Page numbers start at 1; a page below 1
// is treated as 1 and a non-positive limit yields no pages.
func Paginate(page, limit, totalCount int) domain.Pagination {
	if page < 1 {
		page = 1
	}
	if totalCount < 0 {
		totalCount = 0
	}
	p := domain.Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: totalCount,
		HasPrev:    page > 1,
	}
	if limit <= 0 {
		return p
	}
	p.Offset = (page - 1) * limit
	p.TotalPages = (totalCount + limit - 1) / limit
	p.HasNext = page < p.TotalPages
	return p
}
