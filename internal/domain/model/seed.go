package model

// Seed 初始化資料，由 yaml 檔載入
type Seed struct {
	Statuses     []Status       `yaml:"statuses"`
	Stores       []Store        `yaml:"stores"`
	Users        []User         `yaml:"users"`
	Products     []Product      `yaml:"products"`
	StockEntries []StoreProduct `yaml:"stock_entries"`
}
