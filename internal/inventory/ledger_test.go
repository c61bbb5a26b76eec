package inventory

import (
	"context"
	"testing"

	"github.com/angelmondragon/orderflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReserveAndRestore(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	seller := dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	first := dbtest.SeedProduct(t, conn, seller.ID, 1000, 10)
	second := dbtest.SeedProduct(t, conn, seller.ID, 250, 4)

	reservations := []Reservation{
		{ProductID: first.ID, Quantity: 3},
		{ProductID: second.ID, Quantity: 4},
	}
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, reservations)
	}))
	require.Equal(t, 7, dbtest.ProductQuantity(t, conn, first.ID))
	require.Equal(t, 0, dbtest.ProductQuantity(t, conn, second.ID))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Restore(ctx, tx, reservations)
	}))
	require.Equal(t, 10, dbtest.ProductQuantity(t, conn, first.ID))
	require.Equal(t, 4, dbtest.ProductQuantity(t, conn, second.ID))
}

func TestReserveShortfallRollsBackEverything(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	seller := dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	plenty := dbtest.SeedProduct(t, conn, seller.ID, 1000, 10)
	scarce := dbtest.SeedProduct(t, conn, seller.ID, 1000, 1)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, []Reservation{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 2},
		})
	})
	require.Error(t, err)
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientQuantity))
	require.Equal(t, 10, dbtest.ProductQuantity(t, conn, plenty.ID))
	require.Equal(t, 1, dbtest.ProductQuantity(t, conn, scarce.ID))
}

func TestReserveSkipsDeletedProducts(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	seller := dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	product := dbtest.SeedProduct(t, conn, seller.ID, 1000, 10)
	dbtest.SoftDelete(t, conn, "products", product.ID)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Reserve(ctx, tx, []Reservation{{ProductID: product.ID, Quantity: 1}})
	})
	require.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientQuantity))

	// stock held before deletion still comes back
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Restore(ctx, tx, []Reservation{{ProductID: product.ID, Quantity: 2}})
	}))
	require.Equal(t, 12, dbtest.ProductQuantity(t, conn, product.ID))
}

func TestRestoreUnknownProductFails(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Restore(ctx, tx, []Reservation{{ProductID: uuid.New(), Quantity: 1}})
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.KindInternal, pkgerrors.KindOf(err))
}

func TestLoadActivePreloadsSeller(t *testing.T) {
	conn := dbtest.Open(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)

	seller := dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	product := dbtest.SeedProduct(t, conn, seller.ID, 1000, 10)
	gone := dbtest.SeedProduct(t, conn, seller.ID, 1000, 10)
	dbtest.SoftDelete(t, conn, "products", gone.ID)

	products, err := ledger.LoadActive(context.Background(), []uuid.UUID{product.ID, gone.ID})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.NotNil(t, products[product.ID].Seller)
	require.Equal(t, seller.ID, products[product.ID].Seller.ID)
}
