package syncmsg

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stream = "messages_stream"

// Run tails the Redis stream and persists every relayed chat message.
// The ws engine broadcasts first and appends here; persistence is
// best-effort and never blocks delivery.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	go func() {
		lastID := "0-0"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			// block up to 2 s for new entries
			res, err := rdc.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   100,
				Block:   2000 * time.Millisecond,
			}).Result()
			if err != nil && err != redis.Nil {
				zap.L().Warn("syncmsg.xread", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(res) == 0 {
				continue
			}
			entries := res[0].Messages
			if err := persist(ctx, db, entries); err != nil {
				zap.L().Warn("syncmsg.persist", zap.Error(err))
			}
			lastID = entries[len(entries)-1].ID
		}
	}()
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// The stream carries usernames; resolve them to ids at insert time.
	const ins = `INSERT INTO messages (user_id, channel_id, message, created_at)
	             SELECT u.id, $2::int, $3, to_timestamp($4)
	               FROM users u WHERE u.username = $1
	             ON CONFLICT DO NOTHING`
	for _, m := range msgs {
		user, _ := m.Values["user"].(string)
		cid, _ := m.Values["cid"].(string)
		msg, _ := m.Values["msg"].(string)
		at, _ := m.Values["at"].(string)

		ts, _ := strconv.ParseInt(at, 10, 64)
		if _, err := tx.ExecContext(ctx, ins, user, cid, msg, ts); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
