package ledger

import (
	"context"
	"testing"

	"github.com/angelmondragon/orderflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateForOrderWritesOneLinePerOrderLine(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	buyer := dbtest.SeedUser(t, conn, enums.UserRoleClient)
	seller := dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	widget := dbtest.SeedProduct(t, conn, seller.ID, 1250, 10)
	gadget := dbtest.SeedProduct(t, conn, seller.ID, 300, 10)
	order := dbtest.SeedOrder(t, conn, buyer.ID, enums.OrderStatusPaid,
		dbtest.OrderItem{Product: widget, Quantity: 3},
		dbtest.OrderItem{Product: gadget, Quantity: 1},
	)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := ledger.CreateForOrder(ctx, tx, &order)
		return err
	}))

	lines, err := ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	var total int64
	for _, line := range lines {
		require.Equal(t, enums.FinancialLineStatusPending, line.Status)
		require.Equal(t, seller.ID, line.SellerID)
		require.Equal(t, line.PriceCents*int64(line.Quantity), line.TotalCents)
		total += line.TotalCents
	}
	require.Equal(t, order.TotalCents, total)
}

func TestCreateForOrderRejectsSecondSet(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	buyer := dbtest.SeedUser(t, conn, enums.UserRoleClient)
	seller := dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	widget := dbtest.SeedProduct(t, conn, seller.ID, 1250, 10)
	order := dbtest.SeedOrder(t, conn, buyer.ID, enums.OrderStatusPaid, dbtest.OrderItem{Product: widget, Quantity: 1})

	create := func(tx *gorm.DB) error {
		_, err := ledger.CreateForOrder(ctx, tx, &order)
		return err
	}
	require.NoError(t, client.WithTx(ctx, create))

	err = client.WithTx(ctx, create)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	lines, err := ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCancelForOrderKeepsRows(t *testing.T) {
	client, conn := dbtest.Client(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	buyer := dbtest.SeedUser(t, conn, enums.UserRoleClient)
	seller := dbtest.SeedUser(t, conn, enums.UserRoleSeller)
	widget := dbtest.SeedProduct(t, conn, seller.ID, 1250, 10)
	gadget := dbtest.SeedProduct(t, conn, seller.ID, 300, 10)
	order := dbtest.SeedOrder(t, conn, buyer.ID, enums.OrderStatusPaid,
		dbtest.OrderItem{Product: widget, Quantity: 2},
		dbtest.OrderItem{Product: gadget, Quantity: 2},
	)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := ledger.CreateForOrder(ctx, tx, &order)
		return err
	}))

	var cancelled int64
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		cancelled, err = ledger.CancelForOrder(ctx, tx, order.ID)
		return err
	}))
	require.EqualValues(t, 2, cancelled)

	lines, err := ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, line := range lines {
		require.Equal(t, enums.FinancialLineStatusCancelled, line.Status)
	}

	// already cancelled lines are left alone
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		cancelled, err = ledger.CancelForOrder(ctx, tx, order.ID)
		return err
	}))
	require.Zero(t, cancelled)
}

func TestCreateForOrderRequiresLines(t *testing.T) {
	conn := dbtest.Open(t)
	ledger, err := NewLedger(NewRepository(conn))
	require.NoError(t, err)

	_, err = ledger.CreateForOrder(context.Background(), conn, nil)
	require.Error(t, err)
}
