package calsync

import (
	"strings"

	"rentcal/internal/domain/shared/datekey"
)

// Local cache keys.
const (
	KeyMonthPrefix     = "monthData-"
	KeyBlocked         = "blockedDatesMap"
	KeyGlobalSettings  = "calendarGlobalSettings"
	KeyWeekendEnabled  = "weekendDiscountEnabled"
	KeyWeekendPercent  = "weekendDiscountPercent"
	draftNamespaceRoot = "draft:"
)

// Namespace scopes the per-calendar keys of a draft. Weekend and global
// settings keys are shared by every calendar.
func Namespace(calendarID string) string {
	return draftNamespaceRoot + calendarID + ":"
}

func MonthKey(ns string, m datekey.MonthKey) string {
	return ns + KeyMonthPrefix + m.String()
}

func monthFromKey(ns, key string) (datekey.MonthKey, bool) {
	raw, ok := strings.CutPrefix(key, ns+KeyMonthPrefix)
	if !ok {
		return datekey.MonthKey{}, false
	}
	m, err := datekey.ParseMonthKey(raw)
	if err != nil {
		return datekey.MonthKey{}, false
	}
	return m, true
}
