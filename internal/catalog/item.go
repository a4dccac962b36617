package catalog

// Item carries the catalog metadata the pricing layer needs: identity,
// grouping for rule matching, and unit-of-measure conversion.
type Item struct {
	Code             string  `json:"item_code"`
	Name             string  `json:"item_name"`
	ItemGroup        string  `json:"item_group"`
	Brand            string  `json:"brand"`
	UOM              string  `json:"uom"`
	StockUOM         string  `json:"stock_uom"`
	ConversionFactor float64 `json:"conversion_factor"`
	PriceListRate    float64 `json:"price_list_rate"`
}
