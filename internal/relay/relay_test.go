package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coplay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedCommand struct {
	channelID string
	event     string
	cmd       Command
}

type mockPublisher struct {
	mu       sync.Mutex
	commands []publishedCommand
	err      error
}

func (m *mockPublisher) Publish(_ context.Context, channelID, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cmd, _ := payload.(Command)
	m.commands = append(m.commands, publishedCommand{channelID: channelID, event: event, cmd: cmd})
	return nil
}

func (m *mockPublisher) published() []publishedCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedCommand(nil), m.commands...)
}

func (m *mockPublisher) last() publishedCommand {
	cmds := m.published()
	return cmds[len(cmds)-1]
}

type mockVault struct {
	mu    sync.Mutex
	blobs map[domain.StateRef][]byte
}

func newMockVault() *mockVault {
	return &mockVault{blobs: make(map[domain.StateRef][]byte)}
}

func (m *mockVault) Put(_ context.Context, ref domain.StateRef, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[ref] = blob
	return nil
}

func (m *mockVault) Get(_ context.Context, ref domain.StateRef) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[ref]
	if !ok {
		return nil, assert.AnError
	}
	return blob, nil
}

func (m *mockVault) Delete(_ context.Context, ref domain.StateRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref)
	return nil
}

func newTestRelay(t *testing.T) (*Relay, *mockPublisher, *mockVault, *clockwork.FakeClock) {
	t.Helper()
	pub := &mockPublisher{}
	vault := newMockVault()
	clock := clockwork.NewFakeClock()
	return New(pub, vault, clock, 10*time.Second), pub, vault, clock
}

// waitForPending polls until the relay has the expected number of awaited commands.
func waitForPending(r *Relay, expected int) bool {
	for range 1000 {
		if r.PendingCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestApplyInput_FireAndForget(t *testing.T) {
	relay, pub, _, _ := newTestRelay(t)

	err := relay.ApplyInput(context.Background(), "lanparty-7", 2, []byte{1, 2, 3})
	require.NoError(t, err)

	require.Len(t, pub.published(), 1)
	got := pub.last()
	assert.Equal(t, "lanparty-7", got.channelID)
	assert.Equal(t, domain.EventEmulatorCommand, got.event)
	assert.Equal(t, KindApplyInput, got.cmd.Kind)
	assert.Equal(t, 2, got.cmd.SlotIndex)
	assert.Equal(t, []byte{1, 2, 3}, got.cmd.Input)
	assert.Equal(t, 0, relay.PendingCount())
}

func TestSetPaused_FireAndForget(t *testing.T) {
	relay, pub, _, _ := newTestRelay(t)

	require.NoError(t, relay.SetPaused(context.Background(), "lanparty-7", true))

	got := pub.last()
	assert.Equal(t, KindSetPaused, got.cmd.Kind)
	assert.True(t, got.cmd.Paused)
	assert.Equal(t, 0, relay.PendingCount())
}

func TestLoadGame_AwaitsReply(t *testing.T) {
	relay, pub, _, _ := newTestRelay(t)

	done := make(chan error, 1)
	go func() {
		done <- relay.LoadGame(context.Background(), "lanparty-7", "metroid")
	}()

	require.True(t, waitForPending(relay, 1))
	cmd := pub.last().cmd
	assert.Equal(t, KindLoadGame, cmd.Kind)
	assert.Equal(t, "metroid", cmd.Game)

	relay.HandleReply(cmd.ID, Reply{Status: ReplyStatusOK})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("LoadGame did not return after reply")
	}
	assert.Equal(t, 0, relay.PendingCount())
}

func TestLoadGame_ErrorReply(t *testing.T) {
	relay, pub, _, _ := newTestRelay(t)

	done := make(chan error, 1)
	go func() {
		done <- relay.LoadGame(context.Background(), "lanparty-7", "missing-rom")
	}()

	require.True(t, waitForPending(relay, 1))
	relay.HandleReply(pub.last().cmd.ID, Reply{Status: "error", Error: "rom not found"})

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rom not found")
	case <-time.After(2 * time.Second):
		t.Fatal("LoadGame did not return after error reply")
	}
}

func TestLoadGame_TimesOut(t *testing.T) {
	relay, _, _, clock := newTestRelay(t)

	done := make(chan error, 1)
	go func() {
		done <- relay.LoadGame(context.Background(), "lanparty-7", "metroid")
	}()

	// Wait for the awaiting goroutine to park on the fake clock.
	clock.BlockUntil(1)
	clock.Advance(11 * time.Second)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	case <-time.After(2 * time.Second):
		t.Fatal("LoadGame did not time out")
	}
	assert.Equal(t, 0, relay.PendingCount())
}

func TestCaptureState_StoresBlobInVault(t *testing.T) {
	relay, pub, vault, _ := newTestRelay(t)

	type result struct {
		ref domain.StateRef
		err error
	}
	done := make(chan result, 1)
	go func() {
		ref, err := relay.CaptureState(context.Background(), "lanparty-7")
		done <- result{ref, err}
	}()

	require.True(t, waitForPending(relay, 1))
	relay.HandleReply(pub.last().cmd.ID, Reply{Status: ReplyStatusOK, State: []byte("snapshot-bytes")})

	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.NotEmpty(t, res.ref)
		blob, err := vault.Get(context.Background(), res.ref)
		require.NoError(t, err)
		assert.Equal(t, []byte("snapshot-bytes"), blob)
	case <-time.After(2 * time.Second):
		t.Fatal("CaptureState did not return")
	}
}

func TestCaptureState_EmptyStateIsAnError(t *testing.T) {
	relay, pub, _, _ := newTestRelay(t)

	done := make(chan error, 1)
	go func() {
		_, err := relay.CaptureState(context.Background(), "lanparty-7")
		done <- err
	}()

	require.True(t, waitForPending(relay, 1))
	relay.HandleReply(pub.last().cmd.ID, Reply{Status: ReplyStatusOK})

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no state data")
	case <-time.After(2 * time.Second):
		t.Fatal("CaptureState did not return")
	}
}

func TestRestoreState_ShipsVaultBlob(t *testing.T) {
	relay, pub, vault, _ := newTestRelay(t)
	ctx := context.Background()

	require.NoError(t, vault.Put(ctx, "state-1", []byte("snapshot-bytes")))

	done := make(chan error, 1)
	go func() {
		done <- relay.RestoreState(ctx, "lanparty-7", "state-1")
	}()

	require.True(t, waitForPending(relay, 1))
	cmd := pub.last().cmd
	assert.Equal(t, KindRestoreState, cmd.Kind)
	assert.Equal(t, []byte("snapshot-bytes"), cmd.State)

	relay.HandleReply(cmd.ID, Reply{Status: ReplyStatusOK})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RestoreState did not return")
	}
}

func TestRestoreState_UnknownRef(t *testing.T) {
	relay, pub, _, _ := newTestRelay(t)

	err := relay.RestoreState(context.Background(), "lanparty-7", "never-saved")
	require.Error(t, err)
	assert.Empty(t, pub.published(), "no command published when vault lookup fails")
}

func TestHandleReply_UnknownIDIsDropped(t *testing.T) {
	relay, _, _, _ := newTestRelay(t)

	// Must not panic or block.
	relay.HandleReply("no-such-request", Reply{Status: ReplyStatusOK})
	assert.Equal(t, 0, relay.PendingCount())
}

func TestAwait_ContextCancelled(t *testing.T) {
	relay, _, _, _ := newTestRelay(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- relay.LoadGame(ctx, "lanparty-7", "metroid")
	}()

	require.True(t, waitForPending(relay, 1))
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("LoadGame did not return after cancellation")
	}
	assert.Equal(t, 0, relay.PendingCount())
}

func TestAwait_ConcurrentRequestsAreIndependent(t *testing.T) {
	relay, pub, _, _ := newTestRelay(t)
	ctx := context.Background()

	results := make(chan error, 2)
	go func() { results <- relay.LoadGame(ctx, "alpha", "game-a") }()
	go func() { results <- relay.LoadGame(ctx, "beta", "game-b") }()

	require.True(t, waitForPending(relay, 2))

	// Answer both, regardless of publish order.
	for _, pc := range pub.published() {
		relay.HandleReply(pc.cmd.ID, Reply{Status: ReplyStatusOK})
	}

	for range 2 {
		select {
		case err := <-results:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("request did not complete")
		}
	}
}
