package pricing

// FallbackDefaultCost is used when no default cost was configured anywhere.
const FallbackDefaultCost int64 = 8000

// GlobalSettings is persisted outside any single month.
type GlobalSettings struct {
	DefaultCost int64 `json:"defaultCost"`
}

// ResolveDefaultCost returns the configured default, or the fallback.
func (s GlobalSettings) ResolveDefaultCost() int64 {
	if s.DefaultCost > 0 {
		return s.DefaultCost
	}
	return FallbackDefaultCost
}
