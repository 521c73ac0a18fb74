package domain

import "time"

// InventoryRecord tracks the available quantity for one product. The
// quantity is mutated only through reserve/release and never goes negative.
type InventoryRecord struct {
	ProductID   string    `json:"product_id"`
	Available   int       `json:"available"`
	Location    string    `json:"location"`
	LastUpdated time.Time `json:"last_updated"`
}
