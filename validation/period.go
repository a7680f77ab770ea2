package validation

import "strings"

// Period is a dashboard reporting window.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodLastWeek  Period = "last_week"
	PeriodLastMonth Period = "last_month"
	PeriodLastYear  Period = "last_year"

	DefaultPeriod = PeriodLastWeek
)

// Periods lists every period in display order.
var Periods = []Period{PeriodToday, PeriodYesterday, PeriodLastWeek, PeriodLastMonth, PeriodLastYear}

var periodLabels = map[Period]string{
	PeriodToday:     "Today",
	PeriodYesterday: "Yesterday",
	PeriodLastWeek:  "Last 7 days",
	PeriodLastMonth: "Last 30 days",
	PeriodLastYear:  "Last 12 months",
}

func (p Period) Label() string {
	return periodLabels[p]
}

type periodQuery struct {
	Period string `json:"period" validate:"oneof=today yesterday last_week last_month last_year"`
}

func (p *periodQuery) normalize(_ *sanitizer) {
	p.Period = strings.ToLower(strings.TrimSpace(p.Period))
}

// ParsePeriod validates a period query value. An empty value selects DefaultPeriod.
func (v *Validator) ParsePeriod(raw string) (Period, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultPeriod, nil
	}
	q := periodQuery{Period: raw}
	if err := v.Validate(&q); err != nil {
		return "", err
	}
	return Period(q.Period), nil
}
