// Package pricing computes the cost breakdown of a prospective laundry order.
//
// The computation is a fixed pipeline over the line items and modifiers:
//
//	gross → speed multiplier → package adjustment → discount → GST (CGST + SGST) → due now
//
// Compute is pure. Incomplete or unresolvable line items are skipped rather than
// reported, so the order form can be priced while the operator is still filling it in.
package pricing

import (
	"math"

	"github.com/cleanup/dashboard/internal/enum"
	"github.com/shopspring/decimal"
)

// Speed is the processing tier. 0 is general (dated) delivery; 1, 2 and 3 are
// expedited tiers measured in days.
type Speed int

const (
	SpeedGeneral  Speed = 0
	SpeedOneDay   Speed = 1
	SpeedTwoDay   Speed = 2
	SpeedThreeDay Speed = 3
)

// Valid reports whether s is one of the known tiers.
func (s Speed) Valid() bool {
	return s >= SpeedGeneral && s <= SpeedThreeDay
}

// Multiplier returns the cost multiplier for the tier. Unknown tiers price as general.
func (s Speed) Multiplier() decimal.Decimal {
	switch s {
	case SpeedOneDay:
		return decimal.NewFromInt(2)
	case SpeedTwoDay:
		return decimal.NewFromFloat(1.5)
	case SpeedThreeDay:
		return decimal.NewFromFloat(1.25)
	}
	return decimal.NewFromInt(1)
}

// RequiresDueDate reports whether the client must supply a due date. Expedited
// tiers get their due date from the backend.
func RequiresDueDate(s Speed) bool {
	return s == SpeedGeneral
}

// Package is the service package chosen for the order.
type Package string

const (
	PackageExecutive Package = enum.PackageExecutive
	PackageEconomy   Package = enum.PackageEconomy
)

func (p Package) Valid() bool {
	return p == PackageExecutive || p == PackageEconomy
}

// Installment is the upfront payment policy. The zero value means unset.
type Installment string

const (
	InstallmentFull Installment = enum.InstallmentFull
	InstallmentHalf Installment = enum.InstallmentHalf
	InstallmentNil  Installment = enum.InstallmentNil
)

func (i Installment) Valid() bool {
	return i == InstallmentFull || i == InstallmentHalf || i == InstallmentNil
}

var (
	economyRate = decimal.NewFromFloat(0.15)
	gstHalfRate = decimal.NewFromFloat(0.09)
	hundred     = decimal.NewFromInt(100)
	two         = decimal.NewFromInt(2)
)

// LineItem is one row of the order form.
type LineItem struct {
	ServiceID string
	GarmentID string
	Quantity  int
}

// Modifiers are the order-level pricing inputs. DiscountPercent is a float so
// that NaN and negative values coming from the form can be clamped.
type Modifiers struct {
	Speed           Speed
	Package         Package
	DiscountPercent float64
	Installment     Installment
}

// Line is the priced view of one LineItem.
type Line struct {
	ServiceID string
	GarmentID string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Included  bool
}

// Result is the full cost breakdown.
type Result struct {
	Lines               []Line
	Count               int
	GrossCost           decimal.Decimal
	SpeedAdjustedCost   decimal.Decimal
	PackageAdjustedCost decimal.Decimal
	DiscountPercent     decimal.Decimal
	DiscountAmount      decimal.Decimal
	DiscountedCost      decimal.Decimal
	CGST                decimal.Decimal
	SGST                decimal.Decimal
	NetCost             decimal.Decimal
	DueNow              decimal.Decimal
}

// Compute prices the order. It never fails: unresolved service/garment pairs and
// non-positive quantities contribute nothing and are marked as not included.
func Compute(items []LineItem, mods Modifiers, catalog Catalog) Result {
	res := Result{Lines: make([]Line, len(items))}

	gross := decimal.Zero
	for i, item := range items {
		line := Line{
			ServiceID: item.ServiceID,
			GarmentID: item.GarmentID,
			Quantity:  item.Quantity,
			UnitPrice: decimal.Zero,
			Total:     decimal.Zero,
		}
		if price, ok := catalog.UnitPrice(item.ServiceID, item.GarmentID); ok {
			line.UnitPrice = price
			if item.Quantity > 0 {
				line.Total = price.Mul(decimal.NewFromInt(int64(item.Quantity)))
				line.Included = true
				res.Count += item.Quantity
				gross = gross.Add(line.Total)
			}
		}
		res.Lines[i] = line
	}
	res.GrossCost = gross

	cost := gross.Mul(mods.Speed.Multiplier())
	res.SpeedAdjustedCost = cost

	if mods.Package == PackageEconomy {
		cost = cost.Sub(cost.Mul(economyRate))
	}
	res.PackageAdjustedCost = cost

	pct := ClampDiscount(mods.DiscountPercent)
	res.DiscountPercent = pct
	res.DiscountAmount = pct.Div(hundred).Mul(cost)
	res.DiscountedCost = cost.Sub(res.DiscountAmount)

	res.CGST = res.DiscountedCost.Mul(gstHalfRate)
	res.SGST = res.DiscountedCost.Mul(gstHalfRate)
	res.NetCost = res.DiscountedCost.Add(res.CGST).Add(res.SGST)

	res.DueNow = DueNow(res.NetCost, mods.Installment)
	return res
}

// ClampDiscount turns a raw discount percentage into a usable one. NaN, infinities
// and anything ≤ 0 mean no discount.
func ClampDiscount(pct float64) decimal.Decimal {
	if math.IsNaN(pct) || math.IsInf(pct, 0) || pct <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(pct)
}

// DueNow is the amount collected at order creation for the given policy.
func DueNow(net decimal.Decimal, plan Installment) decimal.Decimal {
	switch plan {
	case InstallmentFull:
		return net
	case InstallmentHalf:
		return net.Div(two)
	}
	return decimal.Zero
}
