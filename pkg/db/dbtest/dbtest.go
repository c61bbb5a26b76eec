// Package dbtest opens isolated in-memory sqlite databases carrying the order
// schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderflow-backend/pkg/db"
	"github.com/angelmondragon/orderflow-backend/pkg/db/models"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
)

// Open returns a fresh database named after the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=on", "orderflow", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection keeps the shared-cache database free of table locks between tx and reads
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in the shared db.Client.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}

// SeedUser inserts an active user with the given role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:    id,
		Email: fmt.Sprintf("%s@example.com", id.String()[:8]),
		Name:  "user " + id.String()[:8],
		Role:  role,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedProduct inserts an active product for seller.
func SeedProduct(t *testing.T, conn *gorm.DB, sellerID uuid.UUID, priceCents int64, quantity int) models.Product {
	t.Helper()
	id := uuid.New()
	product := models.Product{
		ID:          id,
		SellerID:    sellerID,
		Name:        "product " + id.String()[:8],
		Description: "test product",
		PriceCents:  priceCents,
		Quantity:    quantity,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SoftDelete flags a row in table as deleted.
func SoftDelete(t *testing.T, conn *gorm.DB, table string, id uuid.UUID) {
	t.Helper()
	now := time.Now().UTC()
	if err := conn.Table(table).Where("id = ?", id).Updates(map[string]any{"deleted": true, "deleted_at": now}).Error; err != nil {
		t.Fatalf("soft delete %s: %v", table, err)
	}
}

// ProductQuantity reads the current stock counter.
func ProductQuantity(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Quantity
}

// OrderItem is one line of a seeded order.
type OrderItem struct {
	Product  models.Product
	Quantity int
}

// SeedOrder inserts an order in status with snapshot lines and takes the
// matching stock, as order creation would.
func SeedOrder(t *testing.T, conn *gorm.DB, clientID uuid.UUID, status enums.OrderStatus, items ...OrderItem) models.Order {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		ClientID:        clientID,
		Status:          status,
		PaymentAttempts: 1,
		CreatedAt:       time.Now().UTC(),
	}
	for i, item := range items {
		line := models.OrderLine{
			ID:                uuid.New(),
			OrderID:           order.ID,
			ProductID:         item.Product.ID,
			SellerID:          item.Product.SellerID,
			Position:          i,
			Name:              item.Product.Name,
			PriceAtOrderCents: item.Product.PriceCents,
			Quantity:          item.Quantity,
		}
		order.TotalCents += line.LineTotalCents()
		order.Lines = append(order.Lines, line)
	}
	if status == enums.OrderStatusPaid {
		paidAt := time.Now().UTC()
		intent := "pi_" + order.ID.String()[:8]
		order.PaidAt = &paidAt
		order.PaymentIntentID = &intent
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	for _, item := range items {
		if err := conn.Model(&models.Product{}).Where("id = ?", item.Product.ID).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", item.Quantity)).Error; err != nil {
			t.Fatalf("seed order stock: %v", err)
		}
	}
	return order
}

// OrderStatus reads an order's current status.
func OrderStatus(t *testing.T, conn *gorm.DB, orderID uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	if err := conn.First(&order, "id = ?", orderID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	return order.Status
}
