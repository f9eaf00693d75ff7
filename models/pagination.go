package models

// DefaultPageSize is used when a request does not name a page size
const DefaultPageSize = 50

// PaginatedEmails represents a paginated list of emails
type PaginatedEmails struct {
	Emails      []Email `json:"emails"`
	Page        int     `json:"page"`
	PageSize    int     `json:"page_size"`
	TotalPages  int     `json:"total_pages"`
	TotalEmails int     `json:"total_emails"`
	HasNext     bool    `json:"has_next"`
	HasPrev     bool    `json:"has_prev"`
}

// Paginate cuts page (1-based) out of emails. Out of range pages are empty;
// non-positive arguments fall back to the first page and DefaultPageSize.
func Paginate(emails []Email, page, pageSize int) *PaginatedEmails {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(emails)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &PaginatedEmails{
		Emails:      append([]Email{}, emails[start:end]...),
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalEmails: total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}
