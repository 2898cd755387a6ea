package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHub_PublishInSubscriptionOrder(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	var got []string
	hub.Subscribe(func(ev OrderCommitted) { got = append(got, "first") })
	hub.Subscribe(func(ev OrderCommitted) { got = append(got, "second") })

	hub.Publish(OrderCommitted{OrderID: 1})
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(nil)
	calls := 0
	unsubscribe := hub.Subscribe(func(OrderCommitted) { calls++ })
	hub.Publish(OrderCommitted{OrderID: 1})

	unsubscribe()
	unsubscribe()
	hub.Publish(OrderCommitted{OrderID: 2})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, hub.Len())
}

func TestHub_PanickingListenerDoesNotStopDelivery(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	var received OrderCommitted
	hub.Subscribe(func(OrderCommitted) { panic("view gone") })
	hub.Subscribe(func(ev OrderCommitted) { received = ev })

	require.NotPanics(t, func() {
		hub.Publish(OrderCommitted{OrderID: 7, LoyaltyBalance: 275, StockRemaining: map[int64]int64{1: 4}})
	})
	assert.Equal(t, int64(7), received.OrderID)
	assert.Equal(t, int64(275), received.LoyaltyBalance)
	assert.Equal(t, int64(4), received.StockRemaining[1])
}
