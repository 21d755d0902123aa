package types

// OrderTotals is the totals snapshot persisted on an order at checkout time.
// Amounts are in kobo.
type OrderTotals struct {
	SubtotalKobo         int64  `json:"subtotal_kobo"`
	DiscountKobo         int64  `json:"discount_kobo"`
	ShippingFeeKobo      int64  `json:"shipping_fee_kobo"`
	TotalKobo            int64  `json:"total_kobo"`
	CouponCode           string `json:"coupon_code,omitempty"`
	FreeShippingEligible bool   `json:"free_shipping_eligible"`
}
