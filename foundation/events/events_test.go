package events_test

import (
	"fmt"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "worker", events.Topic("worker: runMiningOperation: MINING: started"))
	assert.Equal(t, "state", events.Topic(" state : MineNewBlock"))
	assert.Equal(t, "", events.Topic("no topic here"))
}

func TestHub(t *testing.T) {
	hub := events.New()

	all, err := hub.Subscribe("client1")
	require.NoError(t, err)

	mining, err := hub.Subscribe("client2", "worker")
	require.NoError(t, err)

	_, err = hub.Subscribe("client1")
	assert.ErrorIs(t, err, events.ErrSubscribed, "should not subscribe an id twice")
	assert.Equal(t, 2, hub.Subscribers())

	hub.Publish("state: SubmitTransaction: tx[abc]")
	hub.Publish("worker: runMiningOperation: MINING: completed")

	require.Len(t, all, 2)
	require.Len(t, mining, 1, "should filter events by topic")
	assert.Equal(t, "worker: runMiningOperation: MINING: completed", <-mining)

	dropped, err := hub.Unsubscribe("client1")
	require.NoError(t, err)
	assert.Zero(t, dropped)

	_, err = hub.Unsubscribe("client1")
	assert.ErrorIs(t, err, events.ErrUnknown, "should not unsubscribe twice")

	hub.Close()

	_, open := <-mining
	assert.False(t, open, "should close the channels on close")

	_, err = hub.Subscribe("client3")
	assert.ErrorIs(t, err, events.ErrClosed)
}

func TestHubSlowSubscriber(t *testing.T) {
	hub := events.New()

	_, err := hub.Subscribe("slow")
	require.NoError(t, err)

	const extra = 5
	for i := 0; i < 100+extra; i++ {
		hub.Publish(fmt.Sprintf("state: event %d", i))
	}

	dropped, err := hub.Unsubscribe("slow")
	require.NoError(t, err)
	assert.Equal(t, extra, dropped, "should count events missed by a full subscriber")
}
