package service

import (
	"context"
	"fmt"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

// TransitionPolicy decides whether an order may move from one status to another.
type TransitionPolicy func(from, to domain.OrderStatus) error

// PermissiveTransitions lets any status overwrite any other. It is the default.
func PermissiveTransitions(_, _ domain.OrderStatus) error { return nil }

var allowedTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:   {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:   {domain.OrderStatusDelivered},
}

// StrictTransitions only allows forward moves along
// pending → confirmed → shipped → delivered, plus cancelling before shipment.
// Setting the current status again is a no-op.
func StrictTransitions(from, to domain.OrderStatus) error {
	if from == to {
		return nil
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return domain.NewValidation("status", fmt.Sprintf("cannot move from %s to %s", from, to))
}

// SetStatus overwrites the order's status. Cancelling does not restore stock or
// reverse the order's ledger entry.
func (s *OrderService) SetStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.SetStatus")
	defer span.End()

	if !status.Valid() {
		return nil, domain.NewValidation("status", fmt.Sprintf("unknown status %q", status))
	}

	var updated *domain.Order
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx port.TxRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.NewNotFound("order", orderID)
		}
		if err := s.policy(order.Status, status); err != nil {
			return err
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, status); err != nil {
			return err
		}
		order.Status = status
		updated = order
		return nil
	})
	if err != nil {
		return nil, consistency("set order status", err)
	}

	s.metrics.StatusChanged(string(status))
	s.logger.InfoContext(ctx, "order status updated",
		"order_id", orderID, "order_number", updated.OrderNumber, "status", status)
	return updated, nil
}

// DeleteOrder removes the order and its items. Stock and ledger are left untouched.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := tracer.Start(ctx, "OrderService.DeleteOrder")
	defer span.End()

	var number string
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx port.TxRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.NewNotFound("order", orderID)
		}
		number = order.OrderNumber
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return consistency("delete order", err)
	}

	s.logger.InfoContext(ctx, "order deleted", "order_id", orderID, "order_number", number)
	return nil
}
