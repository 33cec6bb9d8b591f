package inventory

const (
	DefaultText   = "N/A"
	DefaultStatus = "In Stock"
)

// ImportFields are the app fields a CSV column can be mapped onto.
var ImportFields = []string{
	"stockNumber",
	"inboundOrderNumber",
	"description",
	"quantity",
	"location",
	"status",
	"inboundDate",
	"inboundReference",
	"storageCostPerWeek",
	"rhdIn",
	"rhdOut",
}

// Mapping maps an app field to the CSV header that feeds it.
type Mapping map[string]string

// ImportSummary is returned by bulk and CSV imports.
type ImportSummary struct {
	Inserted int `json:"inserted"`
}
