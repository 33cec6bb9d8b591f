package customers

// CustomerInput is the create/update body. Nil id lists leave the existing
// associations untouched; an empty list clears them.
type CustomerInput struct {
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	IsSupplier  bool      `json:"isSupplier"`
	IsHaulier   bool      `json:"isHaulier"`
	SupplierIDs *[]string `json:"supplierIds"`
	HaulierIDs  *[]string `json:"haulierIds"`
}

// mirror describes the partner table a customer flag keeps in sync.
type mirror struct {
	table  string
	entity string
}

var (
	supplierMirror = mirror{table: "suppliers", entity: "supplier"}
	haulierMirror  = mirror{table: "hauliers", entity: "haulier"}
)

// association describes a customer join table.
type association struct {
	table   string
	column  string
	partner mirror
}

var (
	supplierLinks = association{table: "customer_suppliers", column: "supplier_id", partner: supplierMirror}
	haulierLinks  = association{table: "customer_hauliers", column: "haulier_id", partner: haulierMirror}
)
