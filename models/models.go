package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Party statuses shared by customers, suppliers and hauliers.
const (
	StatusActive   = "Active"
	StatusArchived = "Archived"
)

// ValidPartyStatus reports whether s is a customer/supplier/haulier status.
func ValidPartyStatus(s string) bool {
	return s == StatusActive || s == StatusArchived
}

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// User represents an authenticated app user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk" json:"id"`
	Username     string    `bun:"username,unique,notnull" json:"username"`
	FirstName    string    `bun:"first_name,notnull" json:"firstName"`
	LastName     string    `bun:"last_name,notnull" json:"lastName"`
	JobTitle     string    `bun:"job_title,notnull" json:"jobTitle"`
	Role         string    `bun:"role,notnull" json:"role"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Customer owns contracts and orders. AlsoSupplier/AlsoHaulier keep a
// mirror row in suppliers/hauliers linked back through customer_id.
type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID           string    `bun:"id,pk" json:"id"`
	Name         string    `bun:"name,unique,notnull" json:"name"`
	Status       string    `bun:"status,notnull" json:"status"`
	AlsoSupplier bool      `bun:"also_supplier,notnull" json:"isSupplier"`
	AlsoHaulier  bool      `bun:"also_haulier,notnull" json:"isHaulier"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`

	SupplierIDs []string `bun:"-" json:"supplierIds,omitempty"`
	HaulierIDs  []string `bun:"-" json:"haulierIds,omitempty"`
}

// Supplier is a goods source. CustomerID is set only on customer mirrors.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers,alias:s"`

	ID         string    `bun:"id,pk" json:"id"`
	Name       string    `bun:"name,unique,notnull" json:"name"`
	Status     string    `bun:"status,notnull" json:"status"`
	CustomerID *string   `bun:"customer_id" json:"customer_id"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// Haulier is a transport company. CustomerID is set only on customer mirrors.
type Haulier struct {
	bun.BaseModel `bun:"table:hauliers,alias:h"`

	ID         string    `bun:"id,pk" json:"id"`
	Name       string    `bun:"name,unique,notnull" json:"name"`
	Status     string    `bun:"status,notnull" json:"status"`
	CustomerID *string   `bun:"customer_id" json:"customer_id"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// Contract belongs to exactly one customer.
type Contract struct {
	bun.BaseModel `bun:"table:contracts,alias:ct"`

	ID         string    `bun:"id,pk" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	CustomerID string    `bun:"customer_id,notnull" json:"customer_id"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`

	CustomerName string `bun:"customer_name,scanonly" json:"customerName,omitempty"`
}

// Booking is a dock slot. Open bookings use T00:00:00/T00:00:01 times.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID              string    `bun:"id,pk" json:"id"`
	SeriesID        *string   `bun:"series_id" json:"seriesId"`
	Name            string    `bun:"name,notnull" json:"name"`
	Type            string    `bun:"type,notnull" json:"type"`
	StartDateTime   string    `bun:"start_date_time,notnull" json:"startDateTime"`
	EndDateTime     string    `bun:"end_date_time,notnull" json:"endDateTime"`
	Status          string    `bun:"status,notnull" json:"status"`
	ExpectedPallets int       `bun:"expected_pallets,notnull" json:"expectedPallets"`
	CustomerID      *string   `bun:"customer_id" json:"customer_id"`
	SupplierID      *string   `bun:"supplier_id" json:"supplier_id"`
	HaulierID       *string   `bun:"haulier_id" json:"haulier_id"`
	ContractID      *string   `bun:"contract_id" json:"contract_id"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	ContractName string `bun:"contract_name,scanonly" json:"contractName,omitempty"`
}

// InventoryItem is one pallet line held in the warehouse.
type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory,alias:i"`

	ID                 string          `bun:"id,pk" json:"id"`
	StockNumber        string          `bun:"stock_number,notnull" json:"stockNumber"`
	Description        string          `bun:"description,notnull" json:"description"`
	Quantity           int             `bun:"quantity,notnull" json:"quantity"`
	Location           string          `bun:"location,notnull" json:"location"`
	Status             string          `bun:"status,notnull" json:"status"`
	InboundDate        string          `bun:"inbound_date,notnull" json:"inboundDate"`
	InboundReference   string          `bun:"inbound_reference,notnull" json:"inboundReference"`
	InboundOrderNumber *string         `bun:"inbound_order_number" json:"inboundOrderNumber"`
	StorageCostPerWeek decimal.Decimal `bun:"storage_cost_per_week,type:text,notnull" json:"storageCostPerWeek"`
	RhdIn              decimal.Decimal `bun:"rhd_in,type:text,notnull" json:"rhdIn"`
	RhdOut             decimal.Decimal `bun:"rhd_out,type:text,notnull" json:"rhdOut"`
	CustomerID         *string         `bun:"customer_id" json:"customer_id"`
	CreatedAt          time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt          time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	CustomerName string `bun:"customer_name,scanonly" json:"customerName,omitempty"`
}

// Order groups inventory lines for one customer.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          string    `bun:"id,pk" json:"id"`
	OrderNumber string    `bun:"order_number,unique,notnull" json:"orderNumber"`
	CustomerID  string    `bun:"customer_id,notnull" json:"customer_id"`
	Status      string    `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	CustomerName string      `bun:"customer_name,scanonly" json:"customerName,omitempty"`
	Items        []OrderItem `bun:"-" json:"items"`
}

// OrderItem snapshots the price at order time.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID          string          `bun:"id,pk" json:"id"`
	OrderID     string          `bun:"order_id,notnull" json:"order_id"`
	InventoryID *string         `bun:"inventory_id" json:"inventory_id"`
	Quantity    int             `bun:"quantity,notnull" json:"quantity"`
	Price       decimal.Decimal `bun:"price,type:text,notnull" json:"price"`
}

// Setting stores an arbitrary JSON blob per key.
type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:st"`

	Key       string    `bun:"key,pk" json:"key"`
	Value     string    `bun:"value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// Role is a named permission bundle.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	Name string `bun:"name,pk" json:"name"`
}

// RolePermission grants one permission string to a role.
type RolePermission struct {
	bun.BaseModel `bun:"table:role_permissions,alias:rp"`

	Role       string `bun:"role,pk" json:"role"`
	Permission string `bun:"permission,pk" json:"permission"`
}

// CustomerSupplier links a customer to a supplier it works with.
type CustomerSupplier struct {
	bun.BaseModel `bun:"table:customer_suppliers,alias:cs"`

	CustomerID string `bun:"customer_id,pk"`
	SupplierID string `bun:"supplier_id,pk"`
}

// CustomerHaulier links a customer to a haulier it works with.
type CustomerHaulier struct {
	bun.BaseModel `bun:"table:customer_hauliers,alias:ch"`

	CustomerID string `bun:"customer_id,pk"`
	HaulierID  string `bun:"haulier_id,pk"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID     string    `bun:"user_id,notnull" json:"userId"`
	Action     string    `bun:"action,notnull" json:"action"`
	EntityType string    `bun:"entity_type,notnull" json:"entityType"`
	EntityID   string    `bun:"entity_id,notnull" json:"entityId"`
	BeforeJSON string    `bun:"before_json" json:"before,omitempty"`
	AfterJSON  string    `bun:"after_json" json:"after,omitempty"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// SchemaMigration records an applied schema version.
type SchemaMigration struct {
	bun.BaseModel `bun:"table:schema_migrations,alias:sm"`

	Version   int       `bun:"version,pk"`
	Name      string    `bun:"name,notnull"`
	AppliedAt time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}
