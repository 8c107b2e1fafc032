package api

import (
	"errors"
	"time"

	"github.com/teranga-pos/payments/internal/http/response"
	"github.com/teranga-pos/payments/internal/service"

	"github.com/gin-gonic/gin"
)

// ReconciliationQuery bounds the settlement window. Either a single business
// day (date) or an inclusive date range (start_date + end_date).
type ReconciliationQuery struct {
	Date      string `form:"date"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

const reportDateLayout = "2006-01-02"

func (q ReconciliationQuery) window() (time.Time, time.Time, error) {
	if q.Date != "" {
		day, err := time.Parse(reportDateLayout, q.Date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return day, day.AddDate(0, 0, 1), nil
	}
	start, err := time.Parse(reportDateLayout, q.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(reportDateLayout, q.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	// end_date is inclusive; the service window is half-open.
	return start, end.AddDate(0, 0, 1), nil
}

// ReconciliationReport aggregates the tenant's settled volume per provider
// over a window, for matching against provider settlement statements.
func (h *Handler) ReconciliationReport(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	var query ReconciliationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "query parameters invalid", err)
		return
	}
	from, to, err := query.window()
	if err != nil {
		respondError(c, response.CodeBadRequest, "dates must be YYYY-MM-DD, either date or start_date and end_date", nil)
		return
	}

	report, err := h.ReconciliationService.Report(tenantID, from, to)
	if err != nil {
		if errors.Is(err, service.ErrReportWindowInvalid) {
			respondError(c, response.CodeBadRequest, "report window invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "reconciliation report failed", err)
		return
	}
	response.Success(c, report)
}
