package calendar

import (
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/domain/shared/daterange"
)

type Indicator string

const (
	IndicatorPast              Indicator = "past"
	IndicatorBlocked           Indicator = "blocked"
	IndicatorSelected          Indicator = "selected"
	IndicatorExcluded          Indicator = "excluded"
	IndicatorDiscounted        Indicator = "discounted"
	IndicatorWeekendDiscounted Indicator = "weekend_discounted"
	IndicatorHoverPreview      Indicator = "hover_preview"
	IndicatorAwaitingSecond    Indicator = "awaiting_second_click"
	IndicatorAuthoritative     Indicator = "authoritative"
)

// Cell is one of the 42 slots of a month view.
type Cell struct {
	Index      int
	Exists     bool
	Resolution Resolution
	Indicators []Indicator
}

// Prompt is shown while a selected range awaits a discount or a block.
type Prompt struct {
	Range    daterange.DateRange
	Label    string
	Blocking bool
}

type View struct {
	CalendarID      string
	EntityID        string
	Mode            Mode
	Month           datekey.MonthKey
	Cells           [datekey.GridCells]Cell
	Phase           Phase
	Blocking        bool
	Prompt          *Prompt
	CanNavigateBack bool
	Settings        Settings
	Revision        uint64
}

// View projects the displayed month onto the 42-cell grid.
func (c *Calendar) View() (View, error) {
	if c.current.IsZero() {
		return View{}, ErrNoCurrentMonth
	}
	v := View{
		CalendarID:      c.id,
		EntityID:        c.entityID,
		Mode:            c.Mode(),
		Month:           c.current,
		Phase:           c.Phase(),
		Blocking:        c.selection.Blocking,
		CanNavigateBack: c.CanNavigateBack(),
		Settings:        c.settings,
		Revision:        c.revision,
	}
	for i, gc := range datekey.Grid(c.current) {
		cell := Cell{Index: gc.Index, Exists: gc.Exists}
		if gc.Exists {
			cell.Resolution = c.ResolvePrice(gc.Date)
			cell.Indicators = c.indicators(gc.Date, cell.Resolution)
		}
		v.Cells[i] = cell
	}
	if r, ok := c.PendingRange(); ok {
		v.Prompt = &Prompt{Range: r, Label: r.Label(), Blocking: c.selection.Blocking}
	}
	return v, nil
}

func (c *Calendar) indicators(d datekey.DateKey, res Resolution) []Indicator {
	var out []Indicator
	switch res.Status {
	case StatusPast:
		return append(out, IndicatorPast)
	case StatusBlocked:
		out = append(out, IndicatorBlocked)
	case StatusExcluded:
		out = append(out, IndicatorExcluded)
	case StatusDiscounted:
		out = append(out, IndicatorDiscounted)
	case StatusWeekendDiscounted:
		out = append(out, IndicatorWeekendDiscounted)
	}
	if c.IsAuthoritative(d) {
		out = append(out, IndicatorAuthoritative)
	}
	if c.inCommittedRange(d) && res.Status != StatusExcluded {
		out = append(out, IndicatorSelected)
	}
	if c.IsHovered(d) {
		out = append(out, IndicatorHoverPreview)
	}
	if c.selection.TempStart.Equal(d) && c.selection.Phase() == PhasePickingEnd {
		out = append(out, IndicatorAwaitingSecond)
	}
	return out
}
