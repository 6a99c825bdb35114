// Package service implements the domain services of the project ledger:
// project and transaction management, the dashboard aggregation engine, and
// the per-view refresh machinery.
package service

import (
	"time"

	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// DailyWindowDays is the fixed length of the daily activity series: the 7
// calendar days ending on the reference date, inclusive.
const DailyWindowDays = 7

// DayUTC truncates a timestamp to midnight UTC. All calendar bucketing uses
// UTC; mixing zones between date generation and comparison is a defect.
func DayUTC(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// weekStartUTC returns the Monday of the ISO week containing t, midnight UTC
func weekStartUTC(t time.Time) time.Time {
	day := DayUTC(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week starting the previous Monday
	}
	return day.AddDate(0, 0, 1-weekday)
}

// monthStartUTC returns the first day of the month containing t, midnight UTC
func monthStartUTC(t time.Time) time.Time {
	year, month, _ := t.UTC().Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// ComputeProjectSummary aggregates one project's transactions. Transactions
// belonging to other projects are ignored. Zero transactions yields exact
// zeros, not an error.
func ComputeProjectSummary(project *models.Project, transactions []*models.Transaction) models.ProjectSummary {
	totalCredits := decimal.Zero
	totalDebits := decimal.Zero

	for _, tx := range transactions {
		if tx.ProjectID != project.ID {
			continue
		}
		switch tx.Kind {
		case types.KindCredit:
			totalCredits = totalCredits.Add(tx.Amount)
		case types.KindDebit:
			totalDebits = totalDebits.Add(tx.Amount)
		}
	}

	return models.ProjectSummary{
		ProjectID:    project.ID,
		Name:         project.Name,
		TotalCredits: totalCredits,
		TotalDebits:  totalDebits,
		Profit:       totalCredits.Sub(totalDebits),
	}
}

// ComputeDailyStats buckets transactions into the 7 calendar days ending on
// referenceDate, ascending. Days with no transactions yield zero entries; the
// result always has exactly DailyWindowDays entries.
func ComputeDailyStats(transactions []*models.Transaction, referenceDate time.Time) []models.DailyStat {
	ref := DayUTC(referenceDate)

	stats := make([]models.DailyStat, DailyWindowDays)
	index := make(map[time.Time]int, DailyWindowDays)
	for i := range stats {
		date := ref.AddDate(0, 0, i-(DailyWindowDays-1))
		stats[i] = models.DailyStat{
			Date:    date,
			Credits: decimal.Zero,
			Debits:  decimal.Zero,
		}
		index[date] = i
	}

	for _, tx := range transactions {
		i, ok := index[DayUTC(tx.TransactionDate)]
		if !ok {
			continue
		}
		switch tx.Kind {
		case types.KindCredit:
			stats[i].Credits = stats[i].Credits.Add(tx.Amount)
		case types.KindDebit:
			stats[i].Debits = stats[i].Debits.Add(tx.Amount)
		}
	}

	return stats
}

// ComputeWeeklyStats buckets transactions into the trailing ISO weeks ending
// with the week containing referenceDate, ascending by week start.
func ComputeWeeklyStats(transactions []*models.Transaction, referenceDate time.Time, weeks int) []models.PeriodStat {
	if weeks <= 0 {
		return []models.PeriodStat{}
	}

	currentWeek := weekStartUTC(referenceDate)
	starts := make([]time.Time, weeks)
	for i := range starts {
		starts[i] = currentWeek.AddDate(0, 0, -7*(weeks-1-i))
	}

	return bucketPeriods(transactions, starts, weekStartUTC)
}

// ComputeMonthlyStats buckets transactions into the trailing calendar months
// ending with the month containing referenceDate, ascending by month start.
func ComputeMonthlyStats(transactions []*models.Transaction, referenceDate time.Time, months int) []models.PeriodStat {
	if months <= 0 {
		return []models.PeriodStat{}
	}

	currentMonth := monthStartUTC(referenceDate)
	starts := make([]time.Time, months)
	for i := range starts {
		starts[i] = currentMonth.AddDate(0, -(months - 1 - i), 0)
	}

	return bucketPeriods(transactions, starts, monthStartUTC)
}

// bucketPeriods sums credits and debits per bucket. bucketOf maps a
// transaction date to its bucket start; dates outside the window are dropped.
func bucketPeriods(transactions []*models.Transaction, starts []time.Time, bucketOf func(time.Time) time.Time) []models.PeriodStat {
	stats := make([]models.PeriodStat, len(starts))
	index := make(map[time.Time]int, len(starts))
	for i, start := range starts {
		stats[i] = models.PeriodStat{
			PeriodStart: start,
			Credits:     decimal.Zero,
			Debits:      decimal.Zero,
		}
		index[start] = i
	}

	for _, tx := range transactions {
		i, ok := index[bucketOf(tx.TransactionDate)]
		if !ok {
			continue
		}
		switch tx.Kind {
		case types.KindCredit:
			stats[i].Credits = stats[i].Credits.Add(tx.Amount)
		case types.KindDebit:
			stats[i].Debits = stats[i].Debits.Add(tx.Amount)
		}
	}

	return stats
}

// ComputePortfolioSnapshot derives the full dashboard aggregate from already
// fetched inputs. It is pure: identical inputs yield identical outputs.
// Zero projects short-circuits to the empty snapshot.
func ComputePortfolioSnapshot(
	projects []*models.Project,
	transactions []*models.Transaction,
	referenceDate time.Time,
	weeklyWindow, monthlyWindow int,
) *models.PortfolioSnapshot {
	if len(projects) == 0 {
		return models.EmptySnapshot()
	}

	summaries := make([]models.ProjectSummary, len(projects))
	totalBalance := decimal.Zero
	for i, project := range projects {
		summaries[i] = ComputeProjectSummary(project, transactions)
		totalBalance = totalBalance.Add(summaries[i].Profit)
	}

	return &models.PortfolioSnapshot{
		TotalPortfolioBalance: totalBalance,
		TotalProjects:         len(projects),
		ProjectSummaries:      summaries,
		DailyStats:            ComputeDailyStats(transactions, referenceDate),
		WeeklyStats:           ComputeWeeklyStats(transactions, referenceDate, weeklyWindow),
		MonthlyStats:          ComputeMonthlyStats(transactions, referenceDate, monthlyWindow),
	}
}
