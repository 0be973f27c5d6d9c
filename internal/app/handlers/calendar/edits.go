package calendar

import (
	"context"
	"fmt"

	"rentcal/internal/app/dto"
	domaincalendar "rentcal/internal/domain/calendar"
	"rentcal/internal/domain/pricing"
)

const (
	unblockDayKey         = "calendar.day.unblock"
	setDayPriceKey        = "calendar.day.price"
	blockDaysKey          = "calendar.days.block"
	setDefaultCostKey     = "calendar.settings.default_cost"
	setWeekendDiscountKey = "calendar.settings.weekend_discount"
)

type UnblockDayCommand struct {
	SessionID string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
}

func (c UnblockDayCommand) Key() string { return unblockDayKey }

type UnblockDayHandler struct {
	Deps
}

func (h *UnblockDayHandler) Handle(ctx context.Context, cmd UnblockDayCommand) (dto.CalendarView, error) {
	d, err := parseDate(cmd.Date)
	if err != nil {
		return dto.CalendarView{}, err
	}
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		return cal.UnblockDate(d)
	})
}

// SetDayPriceCommand pins a manual price. Input that is not a non-negative
// integer leaves the day untouched.
type SetDayPriceCommand struct {
	SessionID string `validate:"required"`
	Date      string `validate:"required,datetime=2006-01-02"`
	Price     string `validate:"max=32"`
}

func (c SetDayPriceCommand) Key() string { return setDayPriceKey }

type SetDayPriceHandler struct {
	Deps
}

func (h *SetDayPriceHandler) Handle(ctx context.Context, cmd SetDayPriceCommand) (dto.CalendarView, error) {
	d, err := parseDate(cmd.Date)
	if err != nil {
		return dto.CalendarView{}, err
	}
	price, ok := pricing.ParsePrice(cmd.Price)
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		if !ok {
			h.logger().DebugContext(ctx, "malformed price ignored", "session_id", cmd.SessionID, "date", d.String())
			return nil
		}
		return cal.SetPrice(d, price)
	})
}

// BlockDaysCommand blocks days StartDay..EndDay of the displayed month.
type BlockDaysCommand struct {
	SessionID string `validate:"required"`
	StartDay  int    `validate:"min=1,max=31"`
	EndDay    int    `validate:"min=1,max=31"`
}

func (c BlockDaysCommand) Key() string { return blockDaysKey }

type BlockDaysHandler struct {
	Deps
}

func (h *BlockDaysHandler) Handle(ctx context.Context, cmd BlockDaysCommand) (dto.CalendarView, error) {
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		if err := cal.BlockDays(cmd.StartDay, cmd.EndDay); err != nil {
			return fmt.Errorf("block days %d-%d: %w", cmd.StartDay, cmd.EndDay, err)
		}
		return nil
	})
}

// SetDefaultCostCommand changes the session default. Malformed or
// non-positive input falls back to the built-in default.
type SetDefaultCostCommand struct {
	SessionID string `validate:"required"`
	Cost      string `validate:"max=32"`
}

func (c SetDefaultCostCommand) Key() string { return setDefaultCostKey }

type SetDefaultCostHandler struct {
	Deps
}

func (h *SetDefaultCostHandler) Handle(ctx context.Context, cmd SetDefaultCostCommand) (dto.CalendarView, error) {
	cost, _ := pricing.ParsePrice(cmd.Cost)
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		cal.SetDefaultCost(cost)
		return nil
	})
}

type SetWeekendDiscountCommand struct {
	SessionID string `validate:"required"`
	Enabled   bool
	Percent   string `validate:"max=32"`
}

func (c SetWeekendDiscountCommand) Key() string { return setWeekendDiscountKey }

type SetWeekendDiscountHandler struct {
	Deps
}

func (h *SetWeekendDiscountHandler) Handle(ctx context.Context, cmd SetWeekendDiscountCommand) (dto.CalendarView, error) {
	percent := pricing.ParsePercent(cmd.Percent)
	return h.mutate(ctx, cmd.SessionID, func(cal *domaincalendar.Calendar) error {
		cal.SetWeekendDiscount(cmd.Enabled, percent)
		return nil
	})
}
