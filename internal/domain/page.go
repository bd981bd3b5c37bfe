package domain

// Page is one page of a paginated alert list.
type Page struct {
	Alerts     []AlertRecord `json:"alerts"`
	Number     int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int           `json:"total"`
}

// Paginate slices alerts into pages of size perPage and returns page n
// (1-based). n is clamped into [1, TotalPages]; an empty list has one empty page.
func Paginate(alerts []AlertRecord, n, perPage int) Page {
	if perPage <= 0 {
		perPage = len(alerts)
		if perPage == 0 {
			perPage = 1
		}
	}
	total := len(alerts)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	n = min(max(n, 1), pages)

	start := (n - 1) * perPage
	end := min(start+perPage, total)

	page := make([]AlertRecord, end-start)
	copy(page, alerts[start:end])
	return Page{
		Alerts:     page,
		Number:     n,
		TotalPages: pages,
		Total:      total,
	}
}
