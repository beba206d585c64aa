package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	orderRepo "marketplace-backend/internal/domains/order/repository"
	userRepo "marketplace-backend/internal/domains/user/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/logger"
)

// OrderEmailJob consumes email:order tasks and mails one order
// counterparty. A nulled party reference (deleted account) drops the
// task without error.
type OrderEmailJob struct {
	orderRepo orderRepo.OrderRepository
	userRepo  userRepo.UserRepository
	sender    Sender
}

func NewOrderEmailJob(or orderRepo.OrderRepository, ur userRepo.UserRepository, sender Sender) *OrderEmailJob {
	return &OrderEmailJob{
		orderRepo: or,
		userRepo:  ur,
		sender:    sender,
	}
}

func (j *OrderEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload shared.SendOrderEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logger.Error("Invalid order email payload", err)
		return err
	}

	order, err := j.orderRepo.GetOrderByID(ctx, payload.OrderID)
	if err != nil {
		return err
	}

	var recipientID *uuid.UUID
	var subject, body string
	switch payload.RecipientType {
	case shared.RecipientSeller:
		recipientID = order.SellerID
		subject = "You have received a new order"
		body = fmt.Sprintf(
			"A new order %s was placed.\n\nTotal amount: %s\nStatus: %s\n",
			order.ID, order.TotalAmount.StringFixed(2), order.Status)
	case shared.RecipientBuyer:
		recipientID = order.BuyerID
		subject = "Your order was updated"
		body = fmt.Sprintf(
			"Your order %s is now %s.\n\nTotal amount: %s\n",
			order.ID, order.Status, order.TotalAmount.StringFixed(2))
	default:
		logger.Warn("Unknown email recipient type", map[string]interface{}{
			"recipient_type": payload.RecipientType,
		})
		return nil
	}

	if recipientID == nil {
		// account deleted; nothing to send
		return nil
	}

	user, err := j.userRepo.GetByID(ctx, *recipientID)
	if err != nil {
		return err
	}

	if err := j.sender.Send(user.Email, subject, body); err != nil {
		logger.Error("Order email delivery failed", err)
		return err
	}

	return nil
}
