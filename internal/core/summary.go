package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthlySummary is the spend of one user for a specific year+month.
type MonthlySummary struct {
	UserID     int64
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount // sorted by Name
}

// EmptySummary returns the zero summary for a period with no expenses.
func EmptySummary(userID int64, year, month int) MonthlySummary {
	return MonthlySummary{
		UserID:     userID,
		Year:       year,
		Month:      month,
		ByCategory: []CategoryAmount{},
	}
}

// BreakdownTotal sums the per-category amounts. It always equals Total for
// summaries produced by storage.
func (s MonthlySummary) BreakdownTotal() Money {
	var sum Money
	for _, c := range s.ByCategory {
		sum = sum.Add(c.Amount)
	}
	return sum
}
