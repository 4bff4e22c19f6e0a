package plant

// Package plant holds the static description of the TECPAP production floor:
// the three production lines with their speed envelopes and operating
// characteristics, and the four-product bag catalog with complexity and
// speed factors. Engines resolve line and product codes through this package
// so unknown codes degrade to zeroed indicators instead of errors.

// Line identifiers in their canonical insertion order. Ranking tie-breaks
// follow this order.
var Lines = []string{"L1", "L2", "L3"}

// SpeedRange is the valid machine-speed envelope for a line, in pieces/hour.
type SpeedRange struct {
	Min             int
	Max             int
	OptimalEstimate int
}

// SpeedRanges maps each line to its empirically estimated speed envelope.
var SpeedRanges = map[string]SpeedRange{
	"L1": {Min: 700, Max: 1300, OptimalEstimate: 1000},
	"L2": {Min: 800, Max: 1400, OptimalEstimate: 1100},
	"L3": {Min: 600, Max: 1200, OptimalEstimate: 900},
}

// LineCharacteristics are the planning attributes of a line used by the
// recommender's forward-looking score.
type LineCharacteristics struct {
	Speed            int     // nominal pieces/hour
	QualityRate      float64 // 0-1
	Flexibility      float64 // 0-1
	MaintenanceLevel string
	OperatorsNeeded  int
}

// Characteristics maps each line to its planning attributes.
var Characteristics = map[string]LineCharacteristics{
	"L1": {Speed: 1000, QualityRate: 0.97, Flexibility: 0.85, MaintenanceLevel: "Good", OperatorsNeeded: 3},
	"L2": {Speed: 1100, QualityRate: 0.94, Flexibility: 0.90, MaintenanceLevel: "Medium", OperatorsNeeded: 4},
	"L3": {Speed: 900, QualityRate: 0.92, Flexibility: 0.75, MaintenanceLevel: "Medium", OperatorsNeeded: 2},
}

// Product is one entry of the bag catalog.
type Product struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Complexity  float64 `json:"complexity"`
	SpeedFactor float64 `json:"speed_factor"`
}

// Catalog lists the four bag products in canonical order. The Type field is
// the code used in telemetry records and feature indicator columns.
var Catalog = []Product{
	{Code: "P001", Name: "Fond plat", Type: "Fond_Plat", Description: "Standard flat-bottom paper bag", Complexity: 0.7, SpeedFactor: 1.15},
	{Code: "P002", Name: "Fond carré sans poignées", Type: "Fond_Carre_Sans_Poignees", Description: "Square-bottom paper bag, no handles", Complexity: 0.8, SpeedFactor: 1.10},
	{Code: "P003", Name: "Fond carré poignées plates", Type: "Fond_Carre_Poignees_Plates", Description: "Square-bottom paper bag with flat handles", Complexity: 0.9, SpeedFactor: 0.95},
	{Code: "P004", Name: "Fond carré poignées torsadées", Type: "Fond_Carre_Poignees_Torsadees", Description: "Square-bottom paper bag with twisted handles", Complexity: 1.0, SpeedFactor: 0.85},
}

// ProductTypes returns the catalog product type codes in canonical order.
func ProductTypes() []string {
	types := make([]string, len(Catalog))
	for i, p := range Catalog {
		types[i] = p.Type
	}
	return types
}

// ProductByCode returns the catalog entry for a product code, if present.
func ProductByCode(code string) (Product, bool) {
	for _, p := range Catalog {
		if p.Code == code {
			return p, true
		}
	}
	return Product{}, false
}

// KnownLine reports whether id is one of the configured lines.
func KnownLine(id string) bool {
	_, ok := SpeedRanges[id]
	return ok
}

// KnownProduct reports whether productType is in the catalog.
func KnownProduct(productType string) bool {
	for _, p := range Catalog {
		if p.Type == productType {
			return true
		}
	}
	return false
}
