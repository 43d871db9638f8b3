package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyRunsListenersInRegistrationOrder(t *testing.T) {
	n := New()

	var order []int
	n.Subscribe(func() { order = append(order, 1) })
	n.Subscribe(func() { order = append(order, 2) })
	n.Subscribe(func() { order = append(order, 3) })

	n.Notify()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestNotifyInvokesEachListenerExactlyOnce(t *testing.T) {
	n := New()

	counts := make([]int, 3)
	for i := range counts {
		i := i
		n.Subscribe(func() { counts[i]++ })
	}

	n.Notify()
	n.Notify()

	assert.Equal(t, []int{2, 2, 2}, counts)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	n := New()

	calls := 0
	sub := n.Subscribe(func() { calls++ })

	n.Notify()
	sub.Unsubscribe()
	n.Notify()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, n.Len())
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	n := New()

	sub := n.Subscribe(func() {})
	sub.Unsubscribe()
	assert.NotPanics(t, func() { sub.Unsubscribe() })
}

func TestUnsubscribeDuringBroadcastSkipsRemovedListener(t *testing.T) {
	n := New()

	var laterCalled bool
	var later *Subscription

	n.Subscribe(func() { later.Unsubscribe() })
	later = n.Subscribe(func() { laterCalled = true })

	n.Notify()

	assert.False(t, laterCalled, "listener removed mid-broadcast must not run")
}

func TestListenerUnsubscribingItselfDoesNotSkipOthers(t *testing.T) {
	n := New()

	var selfCalls, otherCalls int
	var self *Subscription
	self = n.Subscribe(func() {
		selfCalls++
		self.Unsubscribe()
	})
	n.Subscribe(func() { otherCalls++ })

	n.Notify()
	n.Notify()

	assert.Equal(t, 1, selfCalls)
	assert.Equal(t, 2, otherCalls)
}

func TestNotifyWithNoListeners(t *testing.T) {
	n := New()
	assert.NotPanics(t, func() { n.Notify() })
}
