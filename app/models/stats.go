package models

import "github.com/shopspring/decimal"

// AdminStat is the dashboard summary.
type AdminStat struct {
	TotalUsers  int64           `json:"totalUsers"`
	TotalPlants int64           `json:"totalPlants"`
	TotalOrders int64           `json:"totalOrders"`
	Revenue     decimal.Decimal `json:"revenue"`
}
