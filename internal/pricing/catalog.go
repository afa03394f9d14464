package pricing

import "github.com/shopspring/decimal"

// Catalog is the Service → Garment price list, keyed by service ID.
type Catalog map[string]Service

// Service is a cleaning service (dry clean, wash & fold, ...) and the garments it prices.
type Service struct {
	ID       string
	Name     string
	Garments map[string]Garment
}

// Garment is a garment type priced under one service.
type Garment struct {
	ID       string
	Name     string
	PriceMax decimal.Decimal
}

// UnitPrice resolves the price of one garment under one service.
func (c Catalog) UnitPrice(serviceID, garmentID string) (decimal.Decimal, bool) {
	svc, ok := c[serviceID]
	if !ok {
		return decimal.Zero, false
	}
	g, ok := svc.Garments[garmentID]
	if !ok {
		return decimal.Zero, false
	}
	return g.PriceMax, true
}
