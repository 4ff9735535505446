package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/application/services/testhelpers"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPayments(store *testhelpers.MockPaymentStore, n int) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		capture := uuid.NewString()
		store.Seed(&domain.Payment{
			ID:                uuid.New(),
			Provider:          domain.ProviderPayPal,
			ProviderOrderID:   "ORDER-" + capture,
			ProviderCaptureID: &capture,
			Amount:            decimal.RequireFromString("10.00"),
			Currency:          "USD",
			Status:            domain.PaymentCompleted,
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}, nil)
	}
}

func TestListPayments_Paging(t *testing.T) {
	store := testhelpers.NewMockPaymentStore()
	seedPayments(store, 5)
	service := services.NewQueryService(store, testhelpers.DiscardLogger())

	page, err := service.ListPayments(context.Background(), 2, 2)
	require.NoError(t, err)

	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Payments, 2)
	assert.True(t, page.Payments[0].CreatedAt.After(page.Payments[1].CreatedAt))
}

func TestListPayments_ClampsInputs(t *testing.T) {
	store := testhelpers.NewMockPaymentStore()
	seedPayments(store, 3)
	service := services.NewQueryService(store, testhelpers.DiscardLogger())

	page, err := service.ListPayments(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, services.DefaultPerPage, page.PerPage)
	assert.Len(t, page.Payments, 3)

	page, err = service.ListPayments(context.Background(), 1, 10_000)
	require.NoError(t, err)
	assert.Equal(t, services.MaxPerPage, page.PerPage)

	page, err = service.ListPayments(context.Background(), 9, 25)
	require.NoError(t, err)
	assert.Empty(t, page.Payments)
}

func TestGetPayment(t *testing.T) {
	store := testhelpers.NewMockPaymentStore()
	service := services.NewQueryService(store, testhelpers.DiscardLogger())
	payment := seededPayment(store, domain.ProviderPayPal, strPtr("CAP-1"))

	detail, err := service.GetPayment(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, detail.Payment.ID)
	require.NotNil(t, detail.Order)
	assert.Equal(t, "PP-ORDER-1", detail.Order.OrderNumber)

	_, err = service.GetPayment(context.Background(), uuid.New())
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodePaymentNotFound))
}
