package aggregate

import (
	"time"

	"wishfund/internal/domain"
)

// UserCounts are the user totals the user store reports for each window.
type UserCounts struct {
	Total     int `json:"total"`
	Today     int `json:"new_today"`
	ThisWeek  int `json:"new_this_week"`
	ThisMonth int `json:"new_this_month"`
}

// PlatformStats is the admin view of the whole service.
type PlatformStats struct {
	Users     UserCounts   `json:"users"`
	Wishlists int          `json:"wishlists"`
	Donations PeriodTotals `json:"donations"`
}

// ComputePlatformStats combines store counts with ledger totals.
func ComputePlatformStats(users UserCounts, wishlists int, donations []domain.Donation, now time.Time, loc *time.Location) PlatformStats {
	return PlatformStats{
		Users:     users,
		Wishlists: wishlists,
		Donations: ComputePeriodTotals(donations, now, loc),
	}
}
