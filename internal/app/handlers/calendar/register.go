package calendar

import (
	"rentcal/internal/app/commands"
	"rentcal/internal/app/queries"
)

// Register wires every calendar gesture onto the buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, deps Deps) {
	commands.RegisterHandler(cmdBus, OpenCalendarCommand{}.Key(), &OpenCalendarHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, NavigateCommand{}.Key(), &NavigateHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, ClickDayCommand{}.Key(), &ClickDayHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, HoverDayCommand{}.Key(), &HoverDayHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, LeaveSurfaceCommand{}.Key(), &LeaveSurfaceHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, ApplySelectionCommand{}.Key(), &ApplySelectionHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, CancelSelectionCommand{}.Key(), &CancelSelectionHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, SetBlockingModeCommand{}.Key(), &SetBlockingModeHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, UnblockDayCommand{}.Key(), &UnblockDayHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, SetDayPriceCommand{}.Key(), &SetDayPriceHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, BlockDaysCommand{}.Key(), &BlockDaysHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, SetDefaultCostCommand{}.Key(), &SetDefaultCostHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, SetWeekendDiscountCommand{}.Key(), &SetWeekendDiscountHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, CommitCommand{}.Key(), &CommitHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, ClearCommand{}.Key(), &ClearHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, CloseCommand{}.Key(), &CloseHandler{Deps: deps})

	queries.RegisterHandler(queryBus, GetViewQuery{}.Key(), &GetViewHandler{Deps: deps})
	queries.RegisterHandler(queryBus, GetSnapshotQuery{}.Key(), &GetSnapshotHandler{Deps: deps})
}
