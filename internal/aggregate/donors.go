package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"wishfund/internal/domain"
)

// DonorStanding is one donor's line on a recipient's leaderboard.
type DonorStanding struct {
	DonorID   string            `json:"donor_id"`
	Total     decimal.Decimal   `json:"total_amount"`
	Count     int               `json:"count"`
	First     time.Time         `json:"first_donation"`
	Last      time.Time         `json:"last_donation"`
	Donations []domain.Donation `json:"-"`
}

// Leaderboard ranks named donors; anonymous giving is kept apart.
type Leaderboard struct {
	Donors    []DonorStanding `json:"donors"`
	Anonymous Totals          `json:"anonymous"`
	Total     Totals          `json:"total"`
}

// DonorLeaderboard groups every ledger row by donor, highest total first.
// Ties go to the more recent last donation, then to the lower donor id.
// Donations flagged anonymous or without a donor go to Anonymous, so
// the donor totals plus Anonymous always equal Total.
func DonorLeaderboard(donations []domain.Donation) Leaderboard {
	byDonor := make(map[string]*DonorStanding)
	out := Leaderboard{Donors: make([]DonorStanding, 0)}

	for _, d := range donations {
		out.Total.add(d.Amount)
		if !d.HasDonor() {
			out.Anonymous.add(d.Amount)
			continue
		}

		s, ok := byDonor[*d.DonorID]
		if !ok {
			s = &DonorStanding{DonorID: *d.DonorID, First: d.CreatedAt, Last: d.CreatedAt}
			byDonor[*d.DonorID] = s
		}
		s.Total = s.Total.Add(d.Amount)
		s.Count++
		s.Donations = append(s.Donations, d)
		if d.CreatedAt.Before(s.First) {
			s.First = d.CreatedAt
		}
		if d.CreatedAt.After(s.Last) {
			s.Last = d.CreatedAt
		}
	}

	for _, s := range byDonor {
		out.Donors = append(out.Donors, *s)
	}
	sort.Slice(out.Donors, func(i, j int) bool {
		a, b := out.Donors[i], out.Donors[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		if !a.Last.Equal(b.Last) {
			return a.Last.After(b.Last)
		}
		return a.DonorID < b.DonorID
	})
	return out
}

// Top returns at most n leading standings.
func (l Leaderboard) Top(n int) []DonorStanding {
	if n >= len(l.Donors) {
		return l.Donors
	}
	return l.Donors[:n]
}
