package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/internal/inventory"
	"github.com/nonsonwune/mdv-backend/internal/orders"
	"github.com/nonsonwune/mdv-backend/internal/pricing"
	"github.com/nonsonwune/mdv-backend/internal/reservations"
	"github.com/nonsonwune/mdv-backend/pkg/config"
	"github.com/nonsonwune/mdv-backend/pkg/db"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/paystack"
)

type stubGateway struct {
	initializeFn func(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	calls        []paystack.InitializeRequest
}

func (s *stubGateway) Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error) {
	s.calls = append(s.calls, req)
	if s.initializeFn != nil {
		return s.initializeFn(ctx, req)
	}
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "access_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func TestExecuteCreatesOrderAndReservations(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	gateway := &stubGateway{}
	svc := newTestService(t, conn, gateway, defaultCheckoutConfig())
	ctx := context.Background()

	regular := seedVariant(t, conn, 500000, nil, 10)
	sale := seedVariant(t, conn, 400000, int64Ptr(600000), 10)
	cartID := seedCart(t, conn, map[uuid.UUID]int{regular: 2, sale: 1})

	result, err := svc.Execute(ctx, Input{
		CartID: cartID,
		Email:  "buyer@example.com",
		Address: AddressInput{
			Name: "Ada Obi", Phone: "+2348012345678",
			State: "Ogun", City: "Abeokuta", Street: "12 Ibara Rd",
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.HasPrefix(result.Reference, "MDV-") {
		t.Fatalf("unexpected reference %q", result.Reference)
	}
	if result.Totals.SubtotalKobo != 1400000 {
		t.Fatalf("unexpected subtotal %d", result.Totals.SubtotalKobo)
	}
	if result.AuthorizationURL == "" {
		t.Fatal("expected authorization url")
	}
	if len(gateway.calls) != 1 || gateway.calls[0].AmountKobo != result.Totals.TotalKobo {
		t.Fatalf("gateway called with wrong amount: %+v", gateway.calls)
	}

	var order models.Order
	err = conn.Preload("Items").Preload("Address").First(&order, "id = ?", result.OrderID).Error
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != enums.OrderStatusPendingPayment {
		t.Fatalf("expected pending order, got %s", order.Status)
	}
	if order.AuthorizationURL == nil || *order.AuthorizationURL != result.AuthorizationURL {
		t.Fatalf("authorization url not persisted: %+v", order.AuthorizationURL)
	}
	if len(order.Items) != 2 || order.Address == nil {
		t.Fatalf("expected snapshot rows, got %d items address=%v", len(order.Items), order.Address)
	}
	for _, item := range order.Items {
		if item.VariantID == sale && !item.OnSale {
			t.Fatal("sale variant must be snapshotted as on_sale")
		}
		if item.VariantID == regular && item.OnSale {
			t.Fatal("regular variant must not be on_sale")
		}
	}

	var holds int64
	if err := conn.Model(&models.Reservation{}).
		Where("cart_id = ? AND status = ?", cartID, enums.ReservationStatusActive).
		Count(&holds).Error; err != nil {
		t.Fatalf("count holds: %v", err)
	}
	if holds != 2 {
		t.Fatalf("expected one hold per item, got %d", holds)
	}

	var cartItems int64
	if err := conn.Model(&models.CartItem{}).Where("cart_id = ?", cartID).Count(&cartItems).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if cartItems != 2 {
		t.Fatalf("cart must survive checkout-init, got %d items", cartItems)
	}
}

func TestExecuteEmptyCart(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &stubGateway{}, defaultCheckoutConfig())

	cartID := seedCart(t, conn, nil)
	_, err := svc.Execute(context.Background(), Input{
		CartID:  cartID,
		Email:   "buyer@example.com",
		Address: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected empty-cart validation error, got %v", err)
	}
}

func TestExecuteInsufficientStockAbortsWholeCheckout(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	gateway := &stubGateway{}
	svc := newTestService(t, conn, gateway, defaultCheckoutConfig())

	plenty := seedVariant(t, conn, 500000, nil, 10)
	scarce := seedVariant(t, conn, 300000, nil, 1)
	cartID := seedCart(t, conn, map[uuid.UUID]int{plenty: 1, scarce: 2})

	_, err := svc.Execute(context.Background(), Input{
		CartID:  cartID,
		Email:   "buyer@example.com",
		Address: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected insufficient stock conflict, got %v", err)
	}

	var orderCount int64
	if err := conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("aborted checkout must not persist an order, got %d", orderCount)
	}
	var holdCount int64
	if err := conn.Model(&models.Reservation{}).Count(&holdCount).Error; err != nil {
		t.Fatalf("count holds: %v", err)
	}
	if holdCount != 0 {
		t.Fatalf("aborted checkout must not leave holds, got %d", holdCount)
	}
	if len(gateway.calls) != 0 {
		t.Fatal("gateway must not be called for an aborted checkout")
	}
}

func TestExecuteWithReservationsDisabled(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	cfg := defaultCheckoutConfig()
	cfg.ReservationsEnabled = false
	svc := newTestService(t, conn, &stubGateway{}, cfg)

	scarce := seedVariant(t, conn, 300000, nil, 1)
	cartID := seedCart(t, conn, map[uuid.UUID]int{scarce: 5})

	result, err := svc.Execute(context.Background(), Input{
		CartID:  cartID,
		Email:   "buyer@example.com",
		Address: validAddress(),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.OrderID == uuid.Nil {
		t.Fatal("expected order created")
	}

	var holds int64
	if err := conn.Model(&models.Reservation{}).Count(&holds).Error; err != nil {
		t.Fatalf("count holds: %v", err)
	}
	if holds != 0 {
		t.Fatalf("expected no holds with reservations disabled, got %d", holds)
	}
}

func TestExecuteGatewayFailure(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	gateway := &stubGateway{
		initializeFn: func(context.Context, paystack.InitializeRequest) (*paystack.InitializeResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack unavailable")
		},
	}
	svc := newTestService(t, conn, gateway, defaultCheckoutConfig())

	variantID := seedVariant(t, conn, 500000, nil, 10)
	cartID := seedCart(t, conn, map[uuid.UUID]int{variantID: 1})

	_, err := svc.Execute(context.Background(), Input{
		CartID:  cartID,
		Email:   "buyer@example.com",
		Address: validAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestExecuteValidation(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn, &stubGateway{}, defaultCheckoutConfig())
	ctx := context.Background()

	cases := []struct {
		name  string
		input Input
	}{
		{"missing cart", Input{Email: "a@b.c", Address: validAddress()}},
		{"bad email", Input{CartID: uuid.New(), Email: "nope", Address: validAddress()}},
		{"partial address", Input{CartID: uuid.New(), Email: "a@b.c", Address: AddressInput{Name: "Ada"}}},
	}
	for _, tc := range cases {
		if _, err := svc.Execute(ctx, tc.input); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func validAddress() AddressInput {
	return AddressInput{
		Name: "Ada Obi", Phone: "+2348012345678",
		State: "Ogun", City: "Abeokuta", Street: "12 Ibara Rd",
	}
}

func defaultCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		ReservationsEnabled:       true,
		ReservationTTL:            15 * time.Minute,
		FreeShippingThresholdKobo: 5000000,
		FreeShippingState:         "Lagos",
	}
}

func newTestService(t *testing.T, conn *gorm.DB, gateway Gateway, cfg config.CheckoutConfig) Service {
	t.Helper()
	client := db.NewWithConn(conn, nil)

	invSvc, err := inventory.NewService(client, inventory.NewRepository(conn), nil)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	resSvc, err := reservations.NewService(client, reservations.NewRepository(conn), invSvc, cfg.ReservationTTL, nil)
	if err != nil {
		t.Fatalf("reservation service: %v", err)
	}
	pricingSvc, err := pricing.NewService(client, pricing.NewRepository(conn), cfg)
	if err != nil {
		t.Fatalf("pricing service: %v", err)
	}
	svc, err := NewService(client, NewRepository(conn), orders.NewRepository(conn), pricingSvc, resSvc, gateway, cfg, nil)
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Product{},
		&models.Variant{},
		&models.Inventory{},
		&models.Cart{},
		&models.CartItem{},
		&models.Reservation{},
		&models.Order{},
		&models.OrderItem{},
		&models.Address{},
		&models.Zone{},
		&models.StateZone{},
		&models.Coupon{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seedZones(t, conn)
	return conn
}

func seedZones(t *testing.T, conn *gorm.DB) {
	t.Helper()
	other := models.Zone{ID: uuid.New(), Name: pricing.FallbackZoneName, FeeKobo: 350000}
	if err := conn.Create(&other).Error; err != nil {
		t.Fatalf("seed zone: %v", err)
	}
}

func seedVariant(t *testing.T, conn *gorm.DB, priceKobo int64, compareAt *int64, qty int) uuid.UUID {
	t.Helper()
	product := models.Product{ID: uuid.New(), Title: "Kaftan", Slug: "kaftan-" + uuid.NewString()}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	variant := models.Variant{
		ID:                 uuid.New(),
		ProductID:          product.ID,
		SKU:                "SKU-" + uuid.NewString(),
		PriceKobo:          priceKobo,
		CompareAtPriceKobo: compareAt,
	}
	if err := conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	if err := conn.Create(&models.Inventory{VariantID: variant.ID, Quantity: qty}).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return variant.ID
}

func seedCart(t *testing.T, conn *gorm.DB, items map[uuid.UUID]int) uuid.UUID {
	t.Helper()
	cart := models.Cart{ID: uuid.New()}
	if err := conn.Create(&cart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for variantID, qty := range items {
		item := models.CartItem{ID: uuid.New(), CartID: cart.ID, VariantID: variantID, Qty: qty}
		if err := conn.Create(&item).Error; err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}
	return cart.ID
}

func int64Ptr(v int64) *int64 {
	return &v
}
