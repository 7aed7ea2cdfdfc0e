package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/messagely/apiserver/internal/events"
	"github.com/messagely/apiserver/internal/store"
	"github.com/messagely/apiserver/types"
	"github.com/stretchr/testify/require"
)

type fakeMessageRepo struct {
	messages map[int64]types.Message
	nextID   int64
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[int64]types.Message)}
}

func (r *fakeMessageRepo) Create(ctx context.Context, message types.Message) (types.Message, error) {
	r.nextID++
	message.ID = r.nextID
	r.messages[message.ID] = message
	return message, nil
}

func (r *fakeMessageRepo) Get(ctx context.Context, id int64) (types.MessageDetail, error) {
	msg, exists := r.messages[id]
	if !exists {
		return types.MessageDetail{}, store.ErrNotFound
	}
	return types.MessageDetail{
		ID:       msg.ID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
		FromUser: types.UserSummary{Username: msg.FromUsername},
		ToUser:   types.UserSummary{Username: msg.ToUsername},
	}, nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, id int64, at time.Time) (types.ReadReceipt, error) {
	msg, exists := r.messages[id]
	if !exists {
		return types.ReadReceipt{}, store.ErrNotFound
	}
	msg.ReadAt = &at
	r.messages[id] = msg
	return types.ReadReceipt{ID: id, ReadAt: at}, nil
}

type recordingBackend struct {
	published []events.Event
}

func (b *recordingBackend) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	var event events.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	b.published = append(b.published, event)
	return "id", nil
}

func (b *recordingBackend) Close() error { return nil }

func TestSendPublishesEvent(t *testing.T) {
	t.Parallel()

	repo := newFakeMessageRepo()
	backend := &recordingBackend{}
	svc := NewMessageService(repo, events.NewPublisher(backend, "test-topic"))

	message, err := svc.Send(context.Background(), "alice", "bob", "hi")
	require.NoError(t, err)
	require.Equal(t, int64(1), message.ID)
	require.Nil(t, message.ReadAt)
	require.False(t, message.SentAt.IsZero())

	require.Len(t, backend.published, 1)
	require.Equal(t, events.KindMessageSent, backend.published[0].Kind)
	require.Equal(t, "alice", backend.published[0].FromUsername)
	require.Equal(t, "bob", backend.published[0].ToUsername)
}

func TestMarkReadPublishesEvent(t *testing.T) {
	t.Parallel()

	repo := newFakeMessageRepo()
	backend := &recordingBackend{}
	svc := NewMessageService(repo, events.NewPublisher(backend, "test-topic"))

	message, err := svc.Send(context.Background(), "alice", "bob", "hi")
	require.NoError(t, err)

	receipt, err := svc.MarkRead(context.Background(), message.ID)
	require.NoError(t, err)
	require.Equal(t, message.ID, receipt.ID)
	require.False(t, receipt.ReadAt.IsZero())

	require.Len(t, backend.published, 2)
	require.Equal(t, events.KindMessageRead, backend.published[1].Kind)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	t.Parallel()

	svc := NewMessageService(newFakeMessageRepo(), nil)
	_, err := svc.MarkRead(context.Background(), 42)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendWithoutPublisher(t *testing.T) {
	t.Parallel()

	svc := NewMessageService(newFakeMessageRepo(), nil)
	_, err := svc.Send(context.Background(), "alice", "bob", "hi")
	require.NoError(t, err)
}
