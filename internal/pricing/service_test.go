package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/pkg/config"
	"github.com/nonsonwune/mdv-backend/pkg/db"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
)

const (
	testLagosFee = int64(1500)
	testOtherFee = int64(3500)
)

func TestQuotePercentCoupon(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())
	seedCoupon(t, conn, "TEN", enums.CouponTypePercent, 10)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Items:      []QuoteItem{{UnitPriceKobo: 10000, Qty: 1}},
		State:      "Ogun",
		CouponCode: "TEN",
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Totals.DiscountKobo != 1000 {
		t.Fatalf("expected discount 1000, got %d", quote.Totals.DiscountKobo)
	}
	if quote.Totals.TotalKobo != 9000+testOtherFee {
		t.Fatalf("unexpected total %d", quote.Totals.TotalKobo)
	}
	if quote.Totals.CouponCode != "TEN" {
		t.Fatalf("expected coupon echoed in totals, got %q", quote.Totals.CouponCode)
	}
}

func TestQuoteFixedCouponCapsAtEligibleSubtotal(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())
	seedCoupon(t, conn, "BIG", enums.CouponTypeFixed, 5000)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Items:      []QuoteItem{{UnitPriceKobo: 3000, Qty: 1}},
		State:      "Ogun",
		CouponCode: "BIG",
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Totals.DiscountKobo != 3000 {
		t.Fatalf("expected discount capped at 3000, got %d", quote.Totals.DiscountKobo)
	}
	if quote.Totals.TotalKobo != 0+testOtherFee {
		t.Fatalf("unexpected total %d", quote.Totals.TotalKobo)
	}
}

func TestQuoteShippingCouponZeroesFeeOnly(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())
	seedCoupon(t, conn, "SHIPFREE", enums.CouponTypeShipping, 0)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Items:      []QuoteItem{{UnitPriceKobo: 2000, Qty: 2}},
		State:      "Ogun",
		CouponCode: "SHIPFREE",
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Totals.DiscountKobo != 0 {
		t.Fatalf("shipping coupon must not discount items, got %d", quote.Totals.DiscountKobo)
	}
	if quote.Totals.ShippingFeeKobo != 0 {
		t.Fatalf("expected zero shipping fee, got %d", quote.Totals.ShippingFeeKobo)
	}
	if quote.Totals.TotalKobo != 4000 {
		t.Fatalf("unexpected total %d", quote.Totals.TotalKobo)
	}
}

func TestQuoteUnknownAndInactiveCouponsChangeNothing(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())
	seedInactiveCoupon(t, conn, "OLD", enums.CouponTypePercent, 50)

	for _, code := range []string{"NOPE", "OLD"} {
		quote, err := svc.Quote(context.Background(), QuoteInput{
			Items:      []QuoteItem{{UnitPriceKobo: 10000, Qty: 1}},
			State:      "Ogun",
			CouponCode: code,
		})
		if err != nil {
			t.Fatalf("quote with %s: %v", code, err)
		}
		if quote.Totals.DiscountKobo != 0 || quote.Totals.ShippingFeeKobo != testOtherFee {
			t.Fatalf("coupon %s leaked into totals: %+v", code, quote.Totals)
		}
		if quote.Totals.CouponCode != "" {
			t.Fatalf("coupon %s must not be echoed, got %q", code, quote.Totals.CouponCode)
		}
	}
}

func TestQuoteOnSaleItemsExcludedFromCouponBase(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	seedCoupon(t, conn, "TEN", enums.CouponTypePercent, 10)

	input := QuoteInput{
		Items: []QuoteItem{
			{UnitPriceKobo: 10000, Qty: 1},
			{UnitPriceKobo: 10000, Qty: 1, OnSale: true},
		},
		State:      "Ogun",
		CouponCode: "TEN",
	}

	svc := newTestService(t, conn, defaultCheckoutConfig())
	quote, err := svc.Quote(context.Background(), input)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Totals.DiscountKobo != 1000 {
		t.Fatalf("expected discount on full-price line only, got %d", quote.Totals.DiscountKobo)
	}

	cfg := defaultCheckoutConfig()
	cfg.CouponAppliesToDiscounted = true
	svc = newTestService(t, conn, cfg)
	quote, err = svc.Quote(context.Background(), input)
	if err != nil {
		t.Fatalf("quote with flag: %v", err)
	}
	if quote.Totals.DiscountKobo != 2000 {
		t.Fatalf("expected discount on both lines, got %d", quote.Totals.DiscountKobo)
	}
}

func TestQuoteFreeShippingAfterDiscount(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())
	seedCoupon(t, conn, "TWENTY", enums.CouponTypePercent, 20)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Items: []QuoteItem{{UnitPriceKobo: 60000, Qty: 1}},
		State: "Lagos",
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Totals.ShippingFeeKobo != 0 || !quote.Totals.FreeShippingEligible {
		t.Fatalf("expected free shipping, got %+v", quote.Totals)
	}
	if quote.Totals.TotalKobo != 60000 {
		t.Fatalf("unexpected total %d", quote.Totals.TotalKobo)
	}

	// discount drags the order below the threshold
	quote, err = svc.Quote(context.Background(), QuoteInput{
		Items:      []QuoteItem{{UnitPriceKobo: 60000, Qty: 1}},
		State:      "Lagos",
		CouponCode: "TWENTY",
	})
	if err != nil {
		t.Fatalf("quote with coupon: %v", err)
	}
	if quote.Totals.FreeShippingEligible || quote.Totals.ShippingFeeKobo != testLagosFee {
		t.Fatalf("expected threshold miss after discount, got %+v", quote.Totals)
	}
}

func TestQuoteFreeShippingOnlyForConfiguredState(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Items: []QuoteItem{{UnitPriceKobo: 60000, Qty: 1}},
		State: "Ogun",
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Totals.FreeShippingEligible || quote.Totals.ShippingFeeKobo != testOtherFee {
		t.Fatalf("free shipping must be state-bound, got %+v", quote.Totals)
	}
}

func TestShippingFeeFallsBackToOtherZone(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())

	fee, err := svc.ShippingFee(context.Background(), "Kebbi")
	if err != nil {
		t.Fatalf("shipping fee: %v", err)
	}
	if fee != testOtherFee {
		t.Fatalf("expected fallback fee %d, got %d", testOtherFee, fee)
	}

	fee, err = svc.ShippingFee(context.Background(), "Lagos")
	if err != nil {
		t.Fatalf("shipping fee: %v", err)
	}
	if fee != testLagosFee {
		t.Fatalf("expected lagos fee %d, got %d", testLagosFee, fee)
	}
}

func TestQuoteValidation(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, defaultCheckoutConfig())
	ctx := context.Background()

	cases := []struct {
		name  string
		input QuoteInput
	}{
		{"no items", QuoteInput{State: "Lagos"}},
		{"missing state", QuoteInput{Items: []QuoteItem{{UnitPriceKobo: 100, Qty: 1}}}},
		{"zero qty", QuoteInput{Items: []QuoteItem{{UnitPriceKobo: 100}}, State: "Lagos"}},
		{"negative price", QuoteInput{Items: []QuoteItem{{UnitPriceKobo: -1, Qty: 1}}, State: "Lagos"}},
	}
	for _, tc := range cases {
		if _, err := svc.Quote(ctx, tc.input); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func defaultCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		FreeShippingThresholdKobo: 50000,
		FreeShippingState:         "Lagos",
	}
}

func newTestService(t *testing.T, conn *gorm.DB, cfg config.CheckoutConfig) Service {
	t.Helper()
	svc, err := NewService(db.NewWithConn(conn, nil), NewRepository(conn), cfg)
	if err != nil {
		t.Fatalf("new pricing service: %v", err)
	}
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:pricing_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Zone{}, &models.StateZone{}, &models.Coupon{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seedZones(t, conn)
	return conn
}

func seedZones(t *testing.T, conn *gorm.DB) {
	t.Helper()
	lagos := models.Zone{ID: uuid.New(), Name: "Lagos Zone", FeeKobo: testLagosFee}
	other := models.Zone{ID: uuid.New(), Name: FallbackZoneName, FeeKobo: testOtherFee}
	for _, zone := range []*models.Zone{&lagos, &other} {
		if err := conn.Create(zone).Error; err != nil {
			t.Fatalf("seed zone: %v", err)
		}
	}
	if err := conn.Create(&models.StateZone{ID: uuid.New(), State: "Lagos", ZoneID: lagos.ID}).Error; err != nil {
		t.Fatalf("seed state zone: %v", err)
	}
}

func seedCoupon(t *testing.T, conn *gorm.DB, code string, kind enums.CouponType, value int64) {
	t.Helper()
	coupon := models.Coupon{ID: uuid.New(), Code: code, Type: kind, Value: value, Active: true}
	if err := conn.Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
}

func seedInactiveCoupon(t *testing.T, conn *gorm.DB, code string, kind enums.CouponType, value int64) {
	t.Helper()
	coupon := models.Coupon{ID: uuid.New(), Code: code, Type: kind, Value: value}
	// GORM refills the zero-valued bool from its DB default on insert even
	// with Select, so flip the column with an explicit update afterwards.
	if err := conn.Select("ID", "Code", "Type", "Value", "Active").Create(&coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	if err := conn.Model(&models.Coupon{}).Where("code = ?", code).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate coupon: %v", err)
	}
}
