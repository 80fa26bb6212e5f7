package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/scholarship_backend/internal/database"
)

const maxPageSize = 500

type AdminController struct {
	Store  *database.ScholarshipStore
	Outbox *database.Outbox
}

// ListStudents pages through the registry.
// Query params: limit, page, all, approved, claimed, sort_by, sort_dir
func (a *AdminController) ListStudents(c *gin.Context) {
	all, limit, page := pagination(c)

	sortBy := strings.ToLower(c.DefaultQuery("sort_by", "address"))
	sortDir := strings.ToUpper(c.DefaultQuery("sort_dir", "ASC"))
	if sortDir != "ASC" && sortDir != "DESC" {
		sortDir = "ASC"
	}
	allowedSorts := map[string]string{
		"address":    "address",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	sortCol, ok := allowedSorts[sortBy]
	if !ok {
		sortCol = "address"
	}

	filter := database.StudentFilter{OrderBy: sortCol + " " + sortDir}
	meta := gin.H{"all": all}
	if v, ok := boolQuery(c, "approved"); ok {
		filter.Approved = &v
		meta["approved"] = v
	}
	if v, ok := boolQuery(c, "claimed"); ok {
		filter.Claimed = &v
		meta["claimed"] = v
	}
	if !all {
		filter.Limit = limit
		filter.Offset = (page - 1) * limit
	}

	rows, total, err := a.Store.ListStudents(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list students"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"address":    r.Address,
			"approved":   r.Approved,
			"claimed":    r.Claimed,
			"created_at": r.CreatedAt,
			"updated_at": r.UpdatedAt,
		})
	}
	meta["total"] = total
	if !all {
		meta["limit"] = limit
		meta["page"] = page
		meta["sort_by"] = sortCol
		meta["sort_dir"] = sortDir
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

// ListPayments pages through the payment outbox.
// Query params: limit, page, all, status (pending|dispatched|all), recipient
func (a *AdminController) ListPayments(c *gin.Context) {
	all, limit, page := pagination(c)
	status := strings.ToLower(c.DefaultQuery("status", "all"))
	if status != "pending" && status != "dispatched" && status != "all" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, dispatched or all"})
		return
	}
	filter := database.PaymentFilter{Status: status, Recipient: strings.TrimSpace(c.Query("recipient"))}
	if !all {
		filter.Limit = limit
		filter.Offset = (page - 1) * limit
	}

	rows, total, err := a.Outbox.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		entry := gin.H{
			"id":            r.ID,
			"to_address":    r.Recipient,
			"amount":        gin.H{"denom": r.Denom, "amount": r.Amount.String()},
			"attempts":      r.Attempts,
			"created_at":    r.CreatedAt,
			"dispatched_at": r.DispatchedAt,
		}
		if r.LastError != "" {
			entry["last_error"] = r.LastError
		}
		if r.Reference != "" {
			entry["reference"] = r.Reference
		}
		out = append(out, entry)
	}
	meta := gin.H{"total": total, "all": all, "status": status}
	if filter.Recipient != "" {
		meta["recipient"] = filter.Recipient
	}
	if !all {
		meta["limit"] = limit
		meta["page"] = page
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

func pagination(c *gin.Context) (all bool, limit, page int) {
	all = strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1"
	limit = 50
	page = 1
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	return
}

func boolQuery(c *gin.Context, key string) (bool, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
