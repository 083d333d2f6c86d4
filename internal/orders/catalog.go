package orders

// Package is a purchasable catalog entry. Prices are in minor currency
// units (IDR has none, so the amount is the rupiah price itself).
type Package struct {
	ID     string
	Name   string
	Price  int64
	Active bool
}

// Catalog resolves package_id to a priced entry. Re-pricing the catalog
// never mutates existing orders; the amount is captured at order time.
type Catalog map[string]Package

// Lookup returns the package and whether it exists and is active.
func (c Catalog) Lookup(packageID string) (Package, bool) {
	pkg, ok := c[packageID]
	if !ok || !pkg.Active {
		return Package{}, false
	}
	return pkg, true
}

// DefaultCatalog mirrors the packages offered by the storefront.
func DefaultCatalog() Catalog {
	return Catalog{
		"chatgpt_plus_1_month": {
			ID:     "chatgpt_plus_1_month",
			Name:   "ChatGPT Plus - 1 Bulan",
			Price:  25000,
			Active: true,
		},
		"chatgpt_plus_3_months": {
			ID:     "chatgpt_plus_3_months",
			Name:   "ChatGPT Plus - 3 Bulan",
			Price:  70000,
			Active: true,
		},
	}
}
