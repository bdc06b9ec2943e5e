package enums

// StockBand is the dashboard bucket a catalog item falls into by stock count.
type StockBand string

const (
	StockBandOutOfStock  StockBand = "out_of_stock"
	StockBandLow         StockBand = "low"
	StockBandInStock     StockBand = "in_stock"
	StockBandWellStocked StockBand = "well_stocked"
)

// BandForStock maps a stock count onto its band. Ranges are 0, 1-10, 11-50 and 51+.
func BandForStock(stock int) StockBand {
	switch {
	case stock <= 0:
		return StockBandOutOfStock
	case stock <= 10:
		return StockBandLow
	case stock <= 50:
		return StockBandInStock
	default:
		return StockBandWellStocked
	}
}
