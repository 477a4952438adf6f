package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Amount     Money  `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     Money            `json:"income"`
	Expense    Money            `json:"expense"`
	Net        Money            `json:"net"`
	ByCategory []CategoryAmount `json:"by_category"`
}

// CardUsage is the outstanding amount of a card against its limit.
type CardUsage struct {
	CardID  string  `json:"card_id"`
	Name    string  `json:"name"`
	Limit   Money   `json:"limit"`
	Used    Money   `json:"used"`
	Percent float64 `json:"percent"`
}

// UnknownCategoryName is shown when a category id cannot be resolved.
const UnknownCategoryName = "Categoria desconhecida"
