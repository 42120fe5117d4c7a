package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedis_PublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := Dial(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer rdb.Close()

	sub := rdb.Subscribe(ctx, "queue-events")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	ev := Event{
		Type:       ItemRemoved,
		OwnerID:    uuid.Must(uuid.NewV4()),
		ItemID:     uuid.Must(uuid.NewV4()),
		Identifier: "2017/01/01/blah",
		At:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewRedis(rdb, "queue-events").Notify(ctx, ev))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "queue-events", msg.Channel)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	require.Equal(t, ev, got)
}

func TestRedis_PublishErrorWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	err := NewRedis(rdb, "c").Notify(context.Background(), Event{Type: ItemSaved})
	require.Error(t, err)
}

func TestDial_BadURL(t *testing.T) {
	_, err := Dial(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	require.NoError(t, n.Notify(context.Background(), Event{}))
}
