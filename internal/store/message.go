package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/messagely/apiserver/types"
)

// MessageRepository handles persistence for messages.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message types.Message) (types.Message, error) {
	const query = `
		INSERT INTO messages (from_username, to_username, body, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		message.FromUsername,
		message.ToUsername,
		message.Body,
		message.SentAt,
	).Scan(&message.ID); err != nil {
		return types.Message{}, constraintError(err)
	}
	return message, nil
}

// Get returns a message with both endpoint profiles embedded.
func (r *MessageRepository) Get(ctx context.Context, id int64) (types.MessageDetail, error) {
	const query = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
		       f.username, f.first_name, f.last_name, f.phone,
		       t.username, t.first_name, t.last_name, t.phone
		FROM messages AS m
		JOIN users AS f ON m.from_username = f.username
		JOIN users AS t ON m.to_username = t.username
		WHERE m.id = $1`
	var detail types.MessageDetail
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&detail.Body,
		&detail.SentAt,
		&detail.ReadAt,
		&detail.FromUser.Username,
		&detail.FromUser.FirstName,
		&detail.FromUser.LastName,
		&detail.FromUser.Phone,
		&detail.ToUser.Username,
		&detail.ToUser.FirstName,
		&detail.ToUser.LastName,
		&detail.ToUser.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MessageDetail{}, ErrNotFound
		}
		return types.MessageDetail{}, err
	}
	return detail, nil
}

// MarkRead stamps read_at unconditionally; a repeated call restamps it.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64, at time.Time) (types.ReadReceipt, error) {
	const query = `
		UPDATE messages
		SET read_at = $1
		WHERE id = $2
		RETURNING id, read_at`
	var receipt types.ReadReceipt
	err := r.db.QueryRowContext(ctx, query, at, id).Scan(&receipt.ID, &receipt.ReadAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ReadReceipt{}, ErrNotFound
		}
		return types.ReadReceipt{}, err
	}
	return receipt, nil
}
