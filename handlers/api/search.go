package api

import (
	"strings"
	"time"

	"mailbutler/models"
	"mailbutler/storage"
	"mailbutler/utils"

	"github.com/gofiber/fiber/v2"
)

const searchDateLayout = "2006-01-02"

// SearchHandler handles email search requests
type SearchHandler struct {
	mailbox *storage.Mailbox
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(mailbox *storage.Mailbox) *SearchHandler {
	return &SearchHandler{mailbox: mailbox}
}

// SearchRequest represents a search request
type SearchRequest struct {
	Query    string `json:"query"`
	SearchIn string `json:"search_in"` // "all", "to", "subject", "body"
	Status   string `json:"status"`
	DateFrom string `json:"date_from"` // 2006-01-02, compared with the creation time
	DateTo   string `json:"date_to"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// HandleSearch filters the emails and returns one page of matches
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	if req.SearchIn == "" {
		req.SearchIn = "all"
	}
	switch req.SearchIn {
	case "all", "to", "subject", "body":
	default:
		return utils.BadRequestError("Unknown search_in", nil).WithContext("search_in", req.SearchIn)
	}

	status := models.Status(req.Status)
	if status != "" && !status.Valid() {
		return utils.BadRequestError("Unknown status", nil).WithContext("status", req.Status)
	}

	var dateFrom, dateTo time.Time
	var err error
	if req.DateFrom != "" {
		if dateFrom, err = time.Parse(searchDateLayout, req.DateFrom); err != nil {
			return utils.BadRequestError("Invalid date_from", err)
		}
	}
	if req.DateTo != "" {
		if dateTo, err = time.Parse(searchDateLayout, req.DateTo); err != nil {
			return utils.BadRequestError("Invalid date_to", err)
		}
	}

	matches := make([]models.Email, 0)
	for _, email := range h.mailbox.Emails() {
		if status != "" && email.Status() != status {
			continue
		}
		if !dateFrom.IsZero() && email.CreatedAt.Before(dateFrom) {
			continue
		}
		if !dateTo.IsZero() && !email.CreatedAt.Before(dateTo.Add(24*time.Hour)) {
			continue
		}
		if !matchesQuery(&email, req.Query, req.SearchIn) {
			continue
		}
		matches = append(matches, email)
	}

	result := models.Paginate(matches, req.Page, req.PageSize)

	utils.Log.Info("Search completed: query='%s' search_in=%s results=%d", req.Query, req.SearchIn, result.TotalEmails)

	return c.JSON(fiber.Map{
		"success": true,
		"results": result,
	})
}

// matchesQuery does a case-insensitive substring match on the chosen fields.
// Rich bodies are matched on their text.
func matchesQuery(email *models.Email, query, searchIn string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)

	to := strings.ToLower(strings.Join(email.Recipients(), ", "))
	subject := strings.ToLower(email.Subject)
	body := email.Body
	if email.IsHTML {
		body = utils.StripHTML(body)
	}
	body = strings.ToLower(body)

	switch searchIn {
	case "to":
		return strings.Contains(to, query)
	case "subject":
		return strings.Contains(subject, query)
	case "body":
		return strings.Contains(body, query)
	default: // "all"
		return strings.Contains(to, query) ||
			strings.Contains(subject, query) ||
			strings.Contains(body, query)
	}
}
