package model

import "time"

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// RunState holds the last-run markers of the scheduler's periodic cycles.
// It is a value: transitions return a new RunState and never mutate the
// receiver.
type RunState struct {
	LastDailyRunDate    string `json:"last_daily_run_date,omitempty"`
	LastMonthlyRunMonth string `json:"last_monthly_run_month,omitempty"`
	LastAnalysisDate    string `json:"last_analysis_date,omitempty"`
}

// DayKey formats t as the daily marker.
func DayKey(t time.Time) string { return t.Format(dayLayout) }

// MonthKey formats t as the monthly marker.
func MonthKey(t time.Time) string { return t.Format(monthLayout) }

// DailyDone reports whether the daily cycle already ran on now's date.
func (s RunState) DailyDone(now time.Time) bool {
	return s.LastDailyRunDate == DayKey(now)
}

// MonthlyDone reports whether the monthly cycle already ran in now's month.
func (s RunState) MonthlyDone(now time.Time) bool {
	return s.LastMonthlyRunMonth == MonthKey(now)
}

// AnalysisDone reports whether the market analysis already ran on now's date.
func (s RunState) AnalysisDone(now time.Time) bool {
	return s.LastAnalysisDate == DayKey(now)
}

// WithDaily marks the daily cycle done for now's date.
func (s RunState) WithDaily(now time.Time) RunState {
	s.LastDailyRunDate = DayKey(now)
	return s
}

// WithMonthly marks the monthly cycle done for now's month.
func (s RunState) WithMonthly(now time.Time) RunState {
	s.LastMonthlyRunMonth = MonthKey(now)
	return s
}

// WithAnalysis marks the market analysis done for now's date.
func (s RunState) WithAnalysis(now time.Time) RunState {
	s.LastAnalysisDate = DayKey(now)
	return s
}

// IsTradingWeekday reports whether t falls on Monday through Friday.
func IsTradingWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
