package channel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pusher/pusher-http-go/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vervana-io/fastfast-common/internal/domain"
)

type fakePusher struct {
	triggered []pusher.Event
	batches   [][]pusher.Event
	// failBatch 第几批返回错误（从 0 数），-1 表示都成功
	failBatch int
}

func (f *fakePusher) Trigger(channel, eventName string, data interface{}) error {
	f.triggered = append(f.triggered, pusher.Event{Channel: channel, Name: eventName, Data: data})
	return nil
}

func (f *fakePusher) TriggerBatch(batch []pusher.Event) (*pusher.TriggerBatchChannelsList, error) {
	idx := len(f.batches)
	f.batches = append(f.batches, batch)
	if f.failBatch == idx {
		return nil, errors.New("api error")
	}
	return &pusher.TriggerBatchChannelsList{}, nil
}

func TestPusherChannel_Trigger(t *testing.T) {
	t.Parallel()
	client := &fakePusher{failBatch: -1}
	ch := newPusherChannel(client)

	err := ch.Trigger(context.Background(), "FastFast.42", "verify_order", map[string]any{"order_id": 1})
	require.NoError(t, err)
	require.Len(t, client.triggered, 1)
	assert.Equal(t, "FastFast.42", client.triggered[0].Channel)
	assert.Equal(t, "verify_order", client.triggered[0].Name)
}

func TestPusherChannel_TriggerBatch_ChunksAtTen(t *testing.T) {
	t.Parallel()
	client := &fakePusher{failBatch: -1}
	ch := newPusherChannel(client)

	events := make([]BatchEvent, 0, 21)
	for i := 0; i < 21; i++ {
		events = append(events, BatchEvent{
			Channel: fmt.Sprintf("orders.approved.%d", i),
			Name:    "rider_new_order",
		})
	}
	results, err := ch.TriggerBatch(context.Background(), events)
	require.NoError(t, err)

	// 21 个事件按 10/10/1 分三批
	require.Len(t, client.batches, 3)
	assert.Len(t, client.batches[0], 10)
	assert.Len(t, client.batches[1], 10)
	assert.Len(t, client.batches[2], 1)

	require.Len(t, results, 21)
	for _, result := range results {
		assert.Equal(t, domain.DispatchSucceeded, result.Status)
	}
}

func TestPusherChannel_TriggerBatch_FailedChunkOnly(t *testing.T) {
	t.Parallel()
	client := &fakePusher{failBatch: 1}
	ch := newPusherChannel(client)

	events := make([]BatchEvent, 0, 15)
	for i := 0; i < 15; i++ {
		events = append(events, BatchEvent{Channel: fmt.Sprintf("c%d", i), Name: "e"})
	}
	results, err := ch.TriggerBatch(context.Background(), events)
	require.NoError(t, err)
	require.Len(t, results, 15)

	// 第一批 10 个成功，第二批 5 个失败
	for i := 0; i < 10; i++ {
		assert.Equal(t, domain.DispatchSucceeded, results[i].Status)
	}
	for i := 10; i < 15; i++ {
		assert.Equal(t, domain.DispatchFailed, results[i].Status)
	}
}
