package dto

import (
	"rentcal/internal/domain/calendar"
)

type WeekendDiscount struct {
	Enabled bool    `json:"enabled"`
	Percent float64 `json:"percent"`
}

type DayCell struct {
	Index      int      `json:"index"`
	Exists     bool     `json:"exists"`
	Date       string   `json:"date,omitempty"`
	Day        int      `json:"day,omitempty"`
	Price      int64    `json:"price"`
	Status     string   `json:"status,omitempty"`
	Indicators []string `json:"indicators,omitempty"`
}

type SelectionPrompt struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Label    string `json:"label"`
	Blocking bool   `json:"blocking"`
}

// CalendarView is the month view returned by every calendar endpoint.
type CalendarView struct {
	SessionID       string           `json:"session_id"`
	EntityID        string           `json:"entity_id,omitempty"`
	Mode            string           `json:"mode"`
	Month           string           `json:"month"`
	Phase           string           `json:"phase"`
	Blocking        bool             `json:"blocking"`
	CanNavigateBack bool             `json:"can_navigate_back"`
	DefaultCost     int64            `json:"default_cost"`
	WeekendDiscount WeekendDiscount  `json:"weekend_discount"`
	Prompt          *SelectionPrompt `json:"prompt,omitempty"`
	Cells           []DayCell        `json:"cells"`
	Revision        uint64           `json:"revision"`
	Dirty           bool             `json:"dirty"`
	Unsaved         bool             `json:"unsaved"`
	Outcome         string           `json:"outcome,omitempty"`
}

func MapCalendarView(v calendar.View) CalendarView {
	out := CalendarView{
		SessionID:       v.CalendarID,
		EntityID:        v.EntityID,
		Mode:            string(v.Mode),
		Month:           v.Month.String(),
		Phase:           string(v.Phase),
		Blocking:        v.Blocking,
		CanNavigateBack: v.CanNavigateBack,
		DefaultCost:     v.Settings.DefaultCost,
		WeekendDiscount: WeekendDiscount{
			Enabled: v.Settings.Weekend.Enabled,
			Percent: v.Settings.Weekend.Percent,
		},
		Cells:    make([]DayCell, 0, len(v.Cells)),
		Revision: v.Revision,
	}
	for _, c := range v.Cells {
		cell := DayCell{Index: c.Index, Exists: c.Exists}
		if c.Exists {
			cell.Date = c.Resolution.Date.String()
			cell.Day = c.Resolution.Date.Day()
			cell.Price = c.Resolution.Price
			cell.Status = string(c.Resolution.Status)
			for _, ind := range c.Indicators {
				cell.Indicators = append(cell.Indicators, string(ind))
			}
		}
		out.Cells = append(out.Cells, cell)
	}
	if v.Prompt != nil {
		out.Prompt = &SelectionPrompt{
			Start:    v.Prompt.Range.Start.String(),
			End:      v.Prompt.Range.End.String(),
			Label:    v.Prompt.Label,
			Blocking: v.Prompt.Blocking,
		}
	}
	return out
}

type CommitResult struct {
	SessionID string `json:"session_id"`
	Committed bool   `json:"committed"`
	Error     string `json:"error,omitempty"`
}
