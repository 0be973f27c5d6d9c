package datekey

import "time"

// GridCells is the fixed size of a month layout: six Monday-first weeks.
const GridCells = 42

// Cell is one slot of the month layout. Leading and trailing blanks have
// Exists == false and a zero Date.
type Cell struct {
	Index  int
	Exists bool
	Date   DateKey
}

// Grid lays the month out Monday-first over 42 cells.
func Grid(m MonthKey) [GridCells]Cell {
	var cells [GridCells]Cell
	offset := LeadingBlanks(m)
	days := m.Days()
	for i := range cells {
		cells[i].Index = i
		day := i - offset + 1
		if day < 1 || day > days {
			continue
		}
		cells[i].Exists = true
		cells[i].Date = Must(m.Year, m.Month, day)
	}
	return cells
}

// LeadingBlanks is the number of empty cells before day 1.
func LeadingBlanks(m MonthKey) int {
	wd := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	return (int(wd) + 6) % 7
}

// VisibleDates lists every real day of the month in order, independent of
// any rendering of the grid.
func VisibleDates(m MonthKey) []DateKey {
	days := m.Days()
	out := make([]DateKey, 0, days)
	for day := 1; day <= days; day++ {
		out = append(out, Must(m.Year, m.Month, day))
	}
	return out
}
