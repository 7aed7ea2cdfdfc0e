package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/messagely/apiserver/internal/events"
	"github.com/messagely/apiserver/types"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, message types.Message) (types.Message, error)
	Get(ctx context.Context, id int64) (types.MessageDetail, error)
	MarkRead(ctx context.Context, id int64, at time.Time) (types.ReadReceipt, error)
}

// MessageService encapsulates message use-cases. Lifecycle transitions emit
// domain events; publishing is fire-and-forget and never fails the request.
type MessageService struct {
	repo      MessageRepository
	publisher *events.Publisher
}

func NewMessageService(repo MessageRepository, publisher *events.Publisher) *MessageService {
	return &MessageService{repo: repo, publisher: publisher}
}

// Send stores a new unread message with sent_at set to now.
func (s *MessageService) Send(ctx context.Context, from, to, body string) (types.Message, error) {
	message, err := s.repo.Create(ctx, types.Message{
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       time.Now(),
	})
	if err != nil {
		return types.Message{}, err
	}

	s.publish(ctx, events.Event{
		Kind:         events.KindMessageSent,
		MessageID:    message.ID,
		FromUsername: message.FromUsername,
		ToUsername:   message.ToUsername,
		At:           message.SentAt,
	})

	return message, nil
}

func (s *MessageService) Get(ctx context.Context, id int64) (types.MessageDetail, error) {
	return s.repo.Get(ctx, id)
}

// MarkRead stamps read_at. The operation is not idempotent: a repeated call
// restamps the timestamp.
func (s *MessageService) MarkRead(ctx context.Context, id int64) (types.ReadReceipt, error) {
	receipt, err := s.repo.MarkRead(ctx, id, time.Now())
	if err != nil {
		return types.ReadReceipt{}, err
	}

	s.publish(ctx, events.Event{
		Kind:      events.KindMessageRead,
		MessageID: receipt.ID,
		At:        receipt.ReadAt,
	})

	return receipt, nil
}

func (s *MessageService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "publish %s event: %v\n", event.Kind, err)
	}
}
