package venue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algotrade/execd/internal/event"
	"github.com/algotrade/execd/internal/ids"
)

func TestSendWhileDisconnectedReturnsError(t *testing.T) {
	c := NewStubClient(4)
	err := c.Send(context.Background(), Command{CorrelationId: 1, ClientOrderId: "A"})
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.Equal(t, 1, c.Pending())
}

func TestSendWhileConnectedSucceedsAndTracksPending(t *testing.T) {
	c := NewStubClient(4)
	require.NoError(t, c.Connect(context.Background()))
	err := c.Send(context.Background(), Command{CorrelationId: 1, ClientOrderId: "A"})
	assert.NoError(t, err)
	assert.Equal(t, 1, c.Pending())
}

func TestPushRetiresPendingOnMatchingCorrelationId(t *testing.T) {
	c := NewStubClient(4)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Send(context.Background(), Command{CorrelationId: 42, ClientOrderId: "A"}))

	c.Push(event.Envelope{Kind: event.KindOrderAccepted, Payload: event.OrderAccepted{ClientOrderId: "A", OrderId: "venue-1"}}, 42)

	assert.Equal(t, 0, c.Pending())
	received := <-c.Events()
	assert.Equal(t, event.KindOrderAccepted, received.Kind)
}

func TestReconnectResendsPendingWhenEnabled(t *testing.T) {
	c := NewStubClient(4)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Send(context.Background(), Command{CorrelationId: 1, ClientOrderId: "A"}))
	require.NoError(t, c.Disconnect(context.Background()))

	resend := c.Reconnect()
	require.Len(t, resend, 1)
	assert.Equal(t, ids.ClientOrderId("A"), resend[0].ClientOrderId)
}

func TestReconnectReturnsNothingWhenResendDisabled(t *testing.T) {
	c := NewStubClient(4)
	c.ResendOnReconnect = false
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Send(context.Background(), Command{CorrelationId: 1, ClientOrderId: "A"}))

	resend := c.Reconnect()
	assert.Empty(t, resend)
}
