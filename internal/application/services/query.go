package services

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/google/uuid"
)

const (
	DefaultPerPage = 25
	MaxPerPage     = 200
)

type QueryService struct {
	payments application.PaymentStore
	logger   *slog.Logger
}

func NewQueryService(payments application.PaymentStore, logger *slog.Logger) *QueryService {
	return &QueryService{
		payments: payments,
		logger:   logger,
	}
}

// ListPayments returns one page of payments, newest first. perPage is capped
// at MaxPerPage.
func (s *QueryService) ListPayments(ctx context.Context, page, perPage int) (*PaymentPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	payments, total, err := s.payments.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	return &PaymentPage{
		Payments: payments,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		Pages:    (total + perPage - 1) / perPage,
	}, nil
}

func (s *QueryService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentDetail, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			return nil, err
		}
		return nil, application.NewInternalError(err)
	}

	detail := &PaymentDetail{Payment: payment}
	if payment.OrderID != nil {
		order, err := s.payments.FindOrderByID(ctx, *payment.OrderID)
		if err != nil {
			s.logger.Warn("payment references missing order", "payment_id", payment.ID, "order_id", *payment.OrderID, "error", err)
		} else {
			detail.Order = order
		}
	}
	return detail, nil
}
