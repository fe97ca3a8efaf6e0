package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s := NewGormStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func testOrder(orderID, reference string) *Order {
	return &Order{
		OrderID:        orderID,
		Reference:      reference,
		RecipientOwner: "9W959DqEETiGZMzG6F186CqTnavjr1KTnYkMFJyVz6mB",
		Recipient:      "HXtBm8XZbxaTt41uqaKhwUAa6Z1aPyvJdsZVENiWsetg",
		Mint:           "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Amount:         12_500_000,
		Label:          "Shop",
		Message:        "Order #1",
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1", "ref-1")))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.Reference)
	assert.Equal(t, string(StatusPending), got.Status)
	assert.Equal(t, uint64(12_500_000), got.Amount)

	_, err = s.GetOrder(ctx, "order-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCreateOrderRejectsDuplicateReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1", "ref-1")))
	err := s.CreateOrder(ctx, testOrder("order-2", "ref-1"))
	assert.Error(t, err)
}

func TestCheckStatusRequiresBothKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1", "ref-1")))

	res, err := s.CheckStatus(ctx, "ref-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, res.Status)

	_, err = s.CheckStatus(ctx, "ref-1", "order-other")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = s.CheckStatus(ctx, "ref-other", "order-1")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1", "ref-1")))

	require.NoError(t, s.MarkProcessing(ctx, "ref-1"))
	res, err := s.CheckStatus(ctx, "ref-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, res.Status)

	require.NoError(t, s.MarkPaid(ctx, "ref-1", "5sig", 321))
	res, err = s.CheckStatus(ctx, "ref-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, res.Status)
	assert.Equal(t, "5sig", res.Signature)

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(321), got.BlockHeight)
}

func TestMarkFailedRecordsReason(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1", "ref-1")))
	require.NoError(t, s.MarkFailed(ctx, "ref-1", "transaction reverted"))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, string(StatusFailed), got.Status)
	assert.Equal(t, "transaction reverted", got.LastError)
}

func TestMarkUnknownReference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.MarkPaid(ctx, "ref-none", "5sig", 1), ErrOrderNotFound)
	assert.ErrorIs(t, s.MarkFailed(ctx, "ref-none", "x"), ErrOrderNotFound)
	assert.ErrorIs(t, s.MarkProcessing(ctx, "ref-none"), ErrOrderNotFound)
}

func TestOpenOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1", "ref-1")))
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-2", "ref-2")))
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-3", "ref-3")))
	require.NoError(t, s.MarkProcessing(ctx, "ref-2"))
	require.NoError(t, s.MarkPaid(ctx, "ref-3", "5sig", 1))

	open, err := s.OpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	refs := []string{open[0].Reference, open[1].Reference}
	assert.ElementsMatch(t, []string{"ref-1", "ref-2"}, refs)
}
