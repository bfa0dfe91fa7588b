package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe(4)

	h.Publish(MakeEvent("run-1", TypeBoardOK, BoardOutcome{Source: "lever", Company: "Figma", Listings: 3}))

	evt := <-ch
	assert.Equal(t, TypeBoardOK, evt.Type)
	assert.Equal(t, "run-1", evt.RunID)

	var out BoardOutcome
	require.NoError(t, json.Unmarshal(evt.Data, &out))
	assert.Equal(t, 3, out.Listings)

	h.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe(1)
	h.Publish(MakeEvent("", TypeBoardOK, nil))
	h.Publish(MakeEvent("", TypeBoardFailed, nil))

	assert.Len(t, ch, 1)
	h.Close()
	evt, open := <-ch
	assert.True(t, open)
	assert.Equal(t, TypeBoardOK, evt.Type)
	_, open = <-ch
	assert.False(t, open)
}

func TestNilHubIsSafe(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() {
		h.Publish(MakeEvent("", TypeRunDone, nil))
		h.Close()
	})
}
