package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"wishfund/internal/domain"
)

// Period selects the time-series window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps a query value onto a Period, defaulting to month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodMonth, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	}
	return "", domain.NewValidationError("period", "must be one of day, week, month, year")
}

// Bucket is one gap-filled point of a time series.
type Bucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Series is a labelled, gap-filled time series.
type Series struct {
	Period Period   `json:"period"`
	Data   []Bucket `json:"data"`
}

var monthNames = map[language.Tag][12]string{
	language.Russian: {
		"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
		"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
	},
	language.English: {
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
}

var monthLocales = language.NewMatcher([]language.Tag{language.Russian, language.English})

// MonthName returns the month name for the best matching supported locale;
// Russian is the fallback.
func MonthName(m time.Month, locale string) string {
	tag, _ := language.Parse(locale)
	_, idx, _ := monthLocales.Match(tag)
	names := monthNames[language.Russian]
	if idx == 1 {
		names = monthNames[language.English]
	}
	return names[m-1]
}

const dayLabel = "2006-01-02"

// TimeSeries buckets counted donations for the period ending at now:
//   - day: 24 hourly buckets "H:00" of the current calendar day
//   - week: 7 daily buckets starting at now-7d
//   - month: 30 daily buckets starting at now-1 month
//   - year: 12 monthly buckets starting at now-1 year, labelled by month name
func TimeSeries(donations []domain.Donation, period Period, now time.Time, loc *time.Location, locale string) (Series, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	var (
		start   time.Time
		end     time.Time
		buckets []Bucket
		keyOf   func(time.Time) string
		index   = make(map[string]int)
	)

	switch period {
	case PeriodDay:
		start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
		keyOf = func(t time.Time) string { return fmt.Sprintf("%d:00", t.Hour()) }
		for h := 0; h < 24; h++ {
			label := fmt.Sprintf("%d:00", h)
			index[label] = len(buckets)
			buckets = append(buckets, Bucket{Label: label})
		}
	case PeriodWeek, PeriodMonth:
		days := 7
		start = local.AddDate(0, 0, -7)
		if period == PeriodMonth {
			days = 30
			start = local.AddDate(0, -1, 0)
		}
		end = local.Add(time.Nanosecond)
		keyOf = func(t time.Time) string { return t.Format(dayLabel) }
		for i := 0; i < days; i++ {
			label := start.AddDate(0, 0, i).Format(dayLabel)
			index[label] = len(buckets)
			buckets = append(buckets, Bucket{Label: label})
		}
	case PeriodYear:
		start = local.AddDate(-1, 0, 0)
		end = local.Add(time.Nanosecond)
		keyOf = func(t time.Time) string { return fmt.Sprintf("%d-%d", t.Year(), int(t.Month())) }
		first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
		for i := 0; i < 12; i++ {
			m := first.AddDate(0, i, 0)
			index[keyOf(m)] = len(buckets)
			buckets = append(buckets, Bucket{Label: MonthName(m.Month(), locale)})
		}
	default:
		return Series{}, domain.NewValidationError("period", "must be one of day, week, month, year")
	}

	for _, d := range donations {
		if d.CreatedAt.Before(start) || !d.CreatedAt.Before(end) {
			continue
		}
		i, ok := index[keyOf(d.CreatedAt.In(loc))]
		if !ok {
			continue
		}
		buckets[i].Count++
		buckets[i].Amount = buckets[i].Amount.Add(d.Amount)
	}
	return Series{Period: period, Data: buckets}, nil
}
