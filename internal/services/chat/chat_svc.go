package chat

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// foreign_key_violation, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const pgFKViolation = "23503"

type ChannelDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

type MessageDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrChannelNotFound = errors.New("channel not found")

type IChatService interface {
	ListChannels(ctx context.Context) ([]ChannelDTO, error)
	CreateChannel(ctx context.Context, name, topic string) (*ChannelDTO, error)
	ListMessages(ctx context.Context, channelID string, limit int) ([]MessageDTO, error)
	SaveMessage(ctx context.Context, userID, channelID, message string) (string, error)
}

type chatService struct {
	db *sql.DB
}

func NewChatService(db *sql.DB) IChatService {
	return &chatService{db: db}
}

func (svc *chatService) ListChannels(ctx context.Context) ([]ChannelDTO, error) {
	const q = `SELECT id, name, topic FROM channels ORDER BY id`
	rows, err := svc.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]ChannelDTO, 0)
	for rows.Next() {
		var (
			id int64
			ch ChannelDTO
		)
		if err := rows.Scan(&id, &ch.Name, &ch.Topic); err != nil {
			return nil, err
		}
		ch.ID = strconv.FormatInt(id, 10)
		list = append(list, ch)
	}
	return list, rows.Err()
}

func (svc *chatService) CreateChannel(ctx context.Context, name, topic string) (*ChannelDTO, error) {
	const q = `INSERT INTO channels (name, topic) VALUES ($1, $2) RETURNING id`
	var id int64
	if err := svc.db.QueryRowContext(ctx, q, name, topic).Scan(&id); err != nil {
		return nil, err
	}
	return &ChannelDTO{ID: strconv.FormatInt(id, 10), Name: name, Topic: topic}, nil
}

// ListMessages returns the channel's latest messages, newest first.
func (svc *chatService) ListMessages(ctx context.Context, channelID string, limit int) ([]MessageDTO, error) {
	if limit == 0 {
		limit = 50
	}
	const q = `SELECT m.id, u.username, m.message, m.created_at
	             FROM messages m
	             JOIN users u ON u.id = m.user_id
	            WHERE m.channel_id = $1::int
	            ORDER BY m.id DESC
	            LIMIT $2`
	rows, err := svc.db.QueryContext(ctx, q, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]MessageDTO, 0, limit)
	for rows.Next() {
		var (
			id int64
			m  MessageDTO
		)
		if err := rows.Scan(&id, &m.Username, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ID = strconv.FormatInt(id, 10)
		list = append(list, m)
	}
	return list, rows.Err()
}

func (svc *chatService) SaveMessage(ctx context.Context, userID, channelID, message string) (string, error) {
	const q = `INSERT INTO messages (user_id, channel_id, message)
	                VALUES ($1::int, $2::int, $3)
	           RETURNING id`
	var id int64
	if err := svc.db.QueryRowContext(ctx, q, userID, channelID, message).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation &&
			pgErr.ConstraintName == "messages_channel_id_fkey" {
			return "", ErrChannelNotFound
		}
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}
