package core

// Aggregates are derived, never stored. All functions here are pure folds
// over an entry slice: no I/O, no retained state, order-independent.

type (
	// Summary is the running income/expense totals and their difference,
	// in cents.
	Summary struct {
		TotalIncome  int64
		TotalExpense int64
		Balance      int64
	}

	// CategoryStat is the per-category total and entry count.
	CategoryStat struct {
		Total int64
		Count int
	}

	// MonthStat is one slot of a monthly breakdown. Month is 1-12.
	MonthStat struct {
		Month        int
		TotalIncome  int64
		TotalExpense int64
		Balance      int64
	}

	// PeriodReport is a Summary over a bounded period, echoing the input
	// date strings unchanged.
	PeriodReport struct {
		StartDate string
		EndDate   string
		Summary
	}
)

// Summarize folds entries into total income, total expense and balance.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Type {
		case Income:
			s.TotalIncome += e.Amount.Cents
		case Expense:
			s.TotalExpense += e.Amount.Cents
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s
}

// CategoryStats groups entries by category. Categories with no entries are
// absent from the result, not zero-filled.
func CategoryStats(entries []Entry) map[Category]CategoryStat {
	stats := make(map[Category]CategoryStat)
	for _, e := range entries {
		s := stats[e.Category]
		s.Total += e.Amount.Cents
		s.Count++
		stats[e.Category] = s
	}
	return stats
}

// MonthlyStats buckets entries into the twelve UTC months of the given
// year. Entries outside the year's window are ignored. The result always
// has exactly twelve slots in month order, however sparse the data.
func MonthlyStats(entries []Entry, year int) []MonthStat {
	stats := make([]MonthStat, 12)
	for i := range stats {
		stats[i].Month = i + 1
	}

	start, end := YearWindow(year)
	for _, e := range entries {
		at := e.CreatedAt.UTC()
		if at.Before(start) || !at.Before(end) {
			continue
		}
		slot := &stats[int(at.Month())-1]
		switch e.Type {
		case Income:
			slot.TotalIncome += e.Amount.Cents
		case Expense:
			slot.TotalExpense += e.Amount.Cents
		}
		slot.Balance = slot.TotalIncome - slot.TotalExpense
	}
	return stats
}
