package session

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/pscheid92/coplay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleInput_Validation(t *testing.T) {
	sess, _, _ := newTestSession(t, "snes")
	ctx := context.Background()

	// Not seated.
	assert.ErrorIs(t, sess.HandleInput(ctx, "u1", []byte{0, 0, 0}), domain.ErrNotAPlayer)

	_, err := sess.JoinPlayer(ctx, "u1", 0)
	require.NoError(t, err)

	// Wrong frame size for the target.
	assert.ErrorIs(t, sess.HandleInput(ctx, "u1", []byte{0}), domain.ErrInvalidPayload)
	assert.ErrorIs(t, sess.HandleInput(ctx, "u1", nil), domain.ErrInvalidPayload)
	assert.ErrorIs(t, sess.HandleInput(ctx, "u1", make([]byte, 16)), domain.ErrInvalidPayload)

	// Spectators never gain input rights.
	require.NoError(t, sess.JoinSpectator(ctx, "u2"))
	assert.ErrorIs(t, sess.HandleInput(ctx, "u2", []byte{0, 0, 0}), domain.ErrNotAPlayer)

	assert.NoError(t, sess.HandleInput(ctx, "u1", []byte{0, 0, 0}))
}

func TestHandleInput_PausedAndEnded(t *testing.T) {
	sess, _, _ := newTestSession(t, "snes")
	ctx := context.Background()

	_, err := sess.JoinPlayer(ctx, "u1", 0)
	require.NoError(t, err)

	_, err = sess.TogglePause(ctx, "u1")
	require.NoError(t, err)
	assert.ErrorIs(t, sess.HandleInput(ctx, "u1", []byte{0, 0, 0}), domain.ErrSessionPaused)

	require.NoError(t, sess.terminate())
	assert.ErrorIs(t, sess.HandleInput(ctx, "u1", []byte{0, 0, 0}), domain.ErrSessionEnded)
}

func TestHandleInput_DeliveredInAdmissionOrder(t *testing.T) {
	sess, emu, _ := newTestSession(t, "snes")
	ctx := context.Background()

	_, err := sess.JoinPlayer(ctx, "u1", 0)
	require.NoError(t, err)
	_, err = sess.JoinPlayer(ctx, "u2", 0)
	require.NoError(t, err)

	const frames = 20
	for i := range frames {
		payload := []byte{byte(i), 0, 0}
		user := "u1"
		if i%2 == 1 {
			user = "u2"
		}
		require.NoError(t, sess.HandleInput(ctx, user, payload))
	}

	require.True(t, waitFor(func() bool { return len(emu.appliedInputs()) == frames }))

	for i, in := range emu.appliedInputs() {
		assert.Equal(t, byte(i), in.payload[0], "event %d out of order", i)
	}
}

// Concurrent producers: total order follows admission, and two events from
// the same user are never reordered relative to each other.
func TestHandleInput_PerUserOrderUnderConcurrency(t *testing.T) {
	sess, emu, _ := newTestSession(t, "n64")
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		_, err := sess.JoinPlayer(ctx, u, 0)
		require.NoError(t, err)
	}

	const perUser = 50
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perUser {
				payload := make([]byte, 8)
				binary.BigEndian.PutUint32(payload, uint32(i))
				assert.NoError(t, sess.HandleInput(ctx, u, payload))
			}
		}()
	}
	wg.Wait()

	require.True(t, waitFor(func() bool { return len(emu.appliedInputs()) == len(users)*perUser }))

	lastPerSlot := make(map[int]uint32)
	for _, in := range emu.appliedInputs() {
		n := binary.BigEndian.Uint32(in.payload)
		if last, ok := lastPerSlot[in.slotIndex]; ok {
			assert.Greater(t, n, last, "slot %d reordered", in.slotIndex)
		}
		lastPerSlot[in.slotIndex] = n
	}
}

func TestHandleInput_EchoesToChannel(t *testing.T) {
	sess, _, pub := newTestSession(t, "snes")
	ctx := context.Background()

	_, err := sess.JoinPlayer(ctx, "u1", 0)
	require.NoError(t, err)
	require.NoError(t, sess.HandleInput(ctx, "u1", []byte{7, 7, 7}))

	require.True(t, waitFor(func() bool {
		for _, ev := range pub.published() {
			if ev.event == domain.EventInput {
				return true
			}
		}
		return false
	}))

	var echoed domain.InputEvent
	for _, ev := range pub.published() {
		if ev.event == domain.EventInput {
			echoed = ev.payload.(domain.InputEvent)
		}
	}
	assert.Equal(t, "u1", echoed.UserID)
	assert.Equal(t, 1, echoed.SlotIndex)
	assert.Equal(t, uint64(1), echoed.Seq)
}
