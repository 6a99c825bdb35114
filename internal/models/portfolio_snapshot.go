package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectSummary is the derived aggregation over one project's transactions.
// It is recomputed on demand and never persisted.
type ProjectSummary struct {
	ProjectID    string          `json:"projectId"`
	Name         string          `json:"name"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	Profit       decimal.Decimal `json:"profit"` // totalCredits - totalDebits, may be negative
}

// DailyStat aggregates credits and debits across all of a user's
// transactions for one calendar date.
type DailyStat struct {
	Date    time.Time       `json:"date"` // midnight UTC
	Credits decimal.Decimal `json:"credits"`
	Debits  decimal.Decimal `json:"debits"`
}

// PeriodStat aggregates credits and debits for a coarser bucket (ISO week or
// calendar month), keyed by the bucket's first day.
type PeriodStat struct {
	PeriodStart time.Time       `json:"periodStart"` // midnight UTC
	Credits     decimal.Decimal `json:"credits"`
	Debits      decimal.Decimal `json:"debits"`
}

// PortfolioSnapshot is the top-level derived aggregate handed to dashboard
// consumers. It is immutable once computed and replaced wholesale on refresh.
type PortfolioSnapshot struct {
	TotalPortfolioBalance decimal.Decimal  `json:"totalPortfolioBalance"` // sum of per-project profits
	TotalProjects         int              `json:"totalProjects"`
	ProjectSummaries      []ProjectSummary `json:"projectsSummary"`
	DailyStats            []DailyStat      `json:"dailyStats"`   // exactly 7 entries, ascending
	WeeklyStats           []PeriodStat     `json:"weeklyStats"`  // trailing ISO weeks, ascending
	MonthlyStats          []PeriodStat     `json:"monthlyStats"` // trailing calendar months, ascending
}

// EmptySnapshot returns the zero-valued snapshot used for the degenerate
// no-projects case and for error paths configured to reset.
func EmptySnapshot() *PortfolioSnapshot {
	return &PortfolioSnapshot{
		TotalPortfolioBalance: decimal.Zero,
		TotalProjects:         0,
		ProjectSummaries:      []ProjectSummary{},
		DailyStats:            []DailyStat{},
		WeeklyStats:           []PeriodStat{},
		MonthlyStats:          []PeriodStat{},
	}
}
