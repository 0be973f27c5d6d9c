package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/middleware"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/session"
	domaincalendar "rentcal/internal/domain/calendar"
	"rentcal/internal/infra/validation"
)

const idempotencyHeader = "Idempotency-Key"

type CalendarHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type openRequest struct {
	EntityID    string `json:"entity_id"`
	DraftID     string `json:"draft_id"`
	Month       string `json:"month"`
	DefaultCost int64  `json:"default_cost"`
}

type navigateRequest struct {
	Delta int `json:"delta"`
}

type applyRequest struct {
	Percent string `json:"percent"`
}

type blockingRequest struct {
	Enabled bool `json:"enabled"`
}

type priceRequest struct {
	Price string `json:"price"`
}

type defaultCostRequest struct {
	Cost string `json:"cost"`
}

type weekendRequest struct {
	Enabled bool   `json:"enabled"`
	Percent string `json:"percent"`
}

type blockDaysRequest struct {
	StartDay int `json:"start_day"`
	EndDay   int `json:"end_day"`
}

func (h CalendarHandler) Open(c *gin.Context) {
	var req openRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	cmd := calendarapp.OpenCalendarCommand{
		EntityID:    req.EntityID,
		DraftID:     req.DraftID,
		Month:       req.Month,
		DefaultCost: req.DefaultCost,
	}
	view, err := commands.Dispatch[calendarapp.OpenCalendarCommand, dto.CalendarView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, "", err)
		return
	}
	c.Header("Location", "/api/v1/calendars/"+view.SessionID)
	c.JSON(http.StatusCreated, view)
}

func (h CalendarHandler) View(c *gin.Context) {
	q := calendarapp.GetViewQuery{SessionID: c.Param("id")}
	view, err := queries.Ask[calendarapp.GetViewQuery, dto.CalendarView](c.Request.Context(), h.Queries, q)
	if err != nil {
		h.handleError(c, q.SessionID, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h CalendarHandler) Snapshot(c *gin.Context) {
	q := calendarapp.GetSnapshotQuery{SessionID: c.Param("id")}
	snap, err := queries.Ask[calendarapp.GetSnapshotQuery, domaincalendar.Snapshot](c.Request.Context(), h.Queries, q)
	if err != nil {
		h.handleError(c, q.SessionID, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h CalendarHandler) Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	dispatchView(h, c, calendarapp.NavigateCommand{SessionID: c.Param("id"), Delta: req.Delta})
}

func (h CalendarHandler) Click(c *gin.Context) {
	dispatchView(h, c, calendarapp.ClickDayCommand{
		SessionID:  c.Param("id"),
		Date:       c.Param("date"),
		RequestKey: c.GetHeader(idempotencyHeader),
	})
}

func (h CalendarHandler) Hover(c *gin.Context) {
	dispatchView(h, c, calendarapp.HoverDayCommand{SessionID: c.Param("id"), Date: c.Param("date")})
}

func (h CalendarHandler) Leave(c *gin.Context) {
	dispatchView(h, c, calendarapp.LeaveSurfaceCommand{SessionID: c.Param("id")})
}

func (h CalendarHandler) Apply(c *gin.Context) {
	var req applyRequest
	if err := bindFlexible(c, &req.Percent, "percent"); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	dispatchView(h, c, calendarapp.ApplySelectionCommand{
		SessionID:  c.Param("id"),
		Percent:    req.Percent,
		RequestKey: c.GetHeader(idempotencyHeader),
	})
}

func (h CalendarHandler) Cancel(c *gin.Context) {
	dispatchView(h, c, calendarapp.CancelSelectionCommand{
		SessionID:  c.Param("id"),
		RequestKey: c.GetHeader(idempotencyHeader),
	})
}

func (h CalendarHandler) Blocking(c *gin.Context) {
	var req blockingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	dispatchView(h, c, calendarapp.SetBlockingModeCommand{SessionID: c.Param("id"), Enabled: req.Enabled})
}

func (h CalendarHandler) BlockDays(c *gin.Context) {
	var req blockDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	dispatchView(h, c, calendarapp.BlockDaysCommand{SessionID: c.Param("id"), StartDay: req.StartDay, EndDay: req.EndDay})
}

func (h CalendarHandler) Unblock(c *gin.Context) {
	dispatchView(h, c, calendarapp.UnblockDayCommand{SessionID: c.Param("id"), Date: c.Param("date")})
}

func (h CalendarHandler) Price(c *gin.Context) {
	var req priceRequest
	if err := bindFlexible(c, &req.Price, "price"); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	dispatchView(h, c, calendarapp.SetDayPriceCommand{SessionID: c.Param("id"), Date: c.Param("date"), Price: req.Price})
}

func (h CalendarHandler) DefaultCost(c *gin.Context) {
	var req defaultCostRequest
	if err := bindFlexible(c, &req.Cost, "cost"); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	dispatchView(h, c, calendarapp.SetDefaultCostCommand{SessionID: c.Param("id"), Cost: req.Cost})
}

func (h CalendarHandler) WeekendDiscount(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	req := weekendRequest{Percent: stringify(raw["percent"])}
	if enabled, ok := raw["enabled"].(bool); ok {
		req.Enabled = enabled
	}
	dispatchView(h, c, calendarapp.SetWeekendDiscountCommand{SessionID: c.Param("id"), Enabled: req.Enabled, Percent: req.Percent})
}

func (h CalendarHandler) Commit(c *gin.Context) {
	cmd := calendarapp.CommitCommand{SessionID: c.Param("id")}
	res, err := commands.Dispatch[calendarapp.CommitCommand, dto.CommitResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, cmd.SessionID, err)
		return
	}
	status := http.StatusOK
	if !res.Committed {
		status = http.StatusBadGateway
	}
	c.JSON(status, res)
}

func (h CalendarHandler) Clear(c *gin.Context) {
	dispatchView(h, c, calendarapp.ClearCommand{SessionID: c.Param("id")})
}

func (h CalendarHandler) Close(c *gin.Context) {
	cmd := calendarapp.CloseCommand{SessionID: c.Param("id")}
	if _, err := commands.Dispatch[calendarapp.CloseCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		h.handleError(c, cmd.SessionID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func dispatchView[C commands.Command](h CalendarHandler, c *gin.Context, cmd C) {
	view, err := commands.Dispatch[C, dto.CalendarView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, c.Param("id"), err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleError maps application errors to statuses. A refused gesture is a
// 409 carrying the unchanged view.
func (h CalendarHandler) handleError(c *gin.Context, sessionID string, err error) {
	switch {
	case errors.Is(err, validation.ErrInvalid), calendarapp.IsBadInput(err):
		h.respondWithError(c, http.StatusBadRequest, err)
	case errors.Is(err, session.ErrSessionNotFound):
		h.respondWithError(c, http.StatusNotFound, err)
	case calendarapp.IsConflict(err), errors.Is(err, middleware.ErrReplayedFailure):
		body := gin.H{"error": err.Error()}
		if sessionID != "" {
			q := calendarapp.GetViewQuery{SessionID: sessionID}
			if view, viewErr := queries.Ask[calendarapp.GetViewQuery, dto.CalendarView](c.Request.Context(), h.Queries, q); viewErr == nil {
				body["view"] = view
			}
		}
		c.JSON(http.StatusConflict, body)
	default:
		h.respondWithError(c, http.StatusInternalServerError, err)
	}
}

func (h CalendarHandler) respondWithError(c *gin.Context, status int, err error) {
	if h.Logger != nil && status >= http.StatusInternalServerError {
		h.Logger.Error("calendar request failed", "status", status, "error", err, "path", c.FullPath(), "session_id", c.Param("id"))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}

// bindFlexible reads field as typed by the user: a JSON number or string.
// An empty body leaves dst empty.
func bindFlexible(c *gin.Context, dst *string, field string) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		return err
	}
	*dst = stringify(raw[field])
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

var _ CalendarHTTP = CalendarHandler{}
