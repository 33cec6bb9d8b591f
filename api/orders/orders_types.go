package orders

import "github.com/shopspring/decimal"

const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusShipped    = "Shipped"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// Statuses is the order vocabulary in lifecycle order.
var Statuses = []string{StatusPending, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled}

func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// OrderInput is the create/update body. On update a nil Items keeps the
// stored lines.
type OrderInput struct {
	OrderNumber string       `json:"orderNumber"`
	CustomerID  string       `json:"customer_id"`
	Status      string       `json:"status"`
	Items       *[]ItemInput `json:"items"`
}

type ItemInput struct {
	InventoryID *string         `json:"inventory_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}
