package tunnel

import (
	"sync"
	"testing"
	"time"

	common "github.com/go-i2p/common/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyTunnel(id TunnelID) *TunnelState {
	return &TunnelState{
		ID:        id,
		State:     TunnelReady,
		CreatedAt: time.Now(),
	}
}

func TestTunnelState(t *testing.T) {
	state := &TunnelState{
		ID:     TunnelID(12345),
		HopIDs: []TunnelID{777, 0},
		State:  TunnelBuilding,
	}

	id, ok := state.SendTunnelID(0)
	assert.True(t, ok)
	assert.Equal(t, TunnelID(12345), id)

	id, ok = state.SendTunnelID(1)
	assert.True(t, ok)
	assert.Equal(t, TunnelID(777), id)

	_, ok = state.SendTunnelID(2)
	assert.False(t, ok, "zero hop ID is not usable")
	_, ok = state.SendTunnelID(3)
	assert.False(t, ok)
	_, ok = state.SendTunnelID(-1)
	assert.False(t, ok)

	var nilState *TunnelState
	_, ok = nilState.SendTunnelID(0)
	assert.False(t, ok)
}

// TestTunnelPoolRoundRobin verifies selection cycles through ready tunnels
// in ID order and skips tunnels still building.
func TestTunnelPoolRoundRobin(t *testing.T) {
	pool := NewTunnelPoolWithConfig(DefaultPoolConfig())
	require.True(t, pool.AddTunnel(readyTunnel(30)))
	require.True(t, pool.AddTunnel(readyTunnel(10)))
	require.True(t, pool.AddTunnel(&TunnelState{ID: 20, State: TunnelBuilding, CreatedAt: time.Now()}))

	var got []TunnelID
	for i := 0; i < 4; i++ {
		got = append(got, pool.SelectTunnel().ID)
	}
	assert.Equal(t, []TunnelID{10, 30, 10, 30}, got)
}

func TestTunnelPoolRejects(t *testing.T) {
	pool := NewTunnelPoolWithConfig(PoolConfig{MaxTunnels: 1, TunnelLifetime: time.Minute})

	assert.False(t, pool.AddTunnel(nil))
	assert.False(t, pool.AddTunnel(readyTunnel(0)))
	assert.True(t, pool.AddTunnel(readyTunnel(1)))
	assert.False(t, pool.AddTunnel(readyTunnel(2)))
	assert.True(t, pool.AddTunnel(readyTunnel(1)), "replacing an existing tunnel is allowed")
	assert.Equal(t, 1, pool.Size())

	pool.RemoveTunnel(1)
	assert.Nil(t, pool.SelectTunnel())
}

func TestTunnelPoolCleanup(t *testing.T) {
	pool := NewTunnelPoolWithConfig(PoolConfig{MaxTunnels: 10, TunnelLifetime: time.Minute})
	now := time.Now()

	pool.AddTunnel(&TunnelState{ID: 1, State: TunnelReady, CreatedAt: now.Add(-2 * time.Minute)})
	pool.AddTunnel(&TunnelState{ID: 2, State: TunnelFailed, CreatedAt: now})
	pool.AddTunnel(&TunnelState{ID: 3, State: TunnelReady, CreatedAt: now})

	assert.Equal(t, 2, pool.CleanupExpiredTunnels(now))
	_, ok := pool.GetTunnel(3)
	assert.True(t, ok)
	assert.Equal(t, 1, pool.Size())
}

// TestOutboundPoolOwnership verifies client tunnels are only handed out to
// their owner and unbound requests use the exploratory pool.
func TestOutboundPoolOwnership(t *testing.T) {
	pool := NewOutboundPool(DefaultPoolConfig())
	alice := common.Hash{1}
	bob := common.Hash{2}

	require.True(t, pool.AddTunnel(&alice, readyTunnel(100)))
	require.True(t, pool.AddTunnel(nil, readyTunnel(200)))

	out, ok := pool.SelectOutbound(&alice)
	require.True(t, ok)
	id, _ := out.SendTunnelID(0)
	assert.Equal(t, TunnelID(100), id)

	out, ok = pool.SelectOutbound(nil)
	require.True(t, ok)
	id, _ = out.SendTunnelID(0)
	assert.Equal(t, TunnelID(200), id)

	out, ok = pool.SelectOutbound(&bob)
	assert.False(t, ok)
	assert.Nil(t, out)

	pool.RemoveTunnel(&alice, 100)
	_, ok = pool.SelectOutbound(&alice)
	assert.False(t, ok)

	pool.RemoveClient(alice)
	pool.RemoveTunnel(&alice, 100)
}

func TestOutboundPoolCleanup(t *testing.T) {
	pool := NewOutboundPool(PoolConfig{MaxTunnels: 4, TunnelLifetime: time.Minute})
	client := common.Hash{9}
	old := time.Now().Add(-time.Hour)

	pool.AddTunnel(&client, &TunnelState{ID: 1, State: TunnelReady, CreatedAt: old})
	pool.AddTunnel(nil, &TunnelState{ID: 2, State: TunnelReady, CreatedAt: old})
	pool.AddTunnel(nil, readyTunnel(3))

	assert.Equal(t, 2, pool.CleanupExpiredTunnels(time.Now()))
	_, ok := pool.SelectOutbound(&client)
	assert.False(t, ok)
	_, ok = pool.SelectOutbound(nil)
	assert.True(t, ok)
}

func TestOutboundPoolConcurrentSelect(t *testing.T) {
	pool := NewOutboundPool(DefaultPoolConfig())
	client := common.Hash{7}
	for id := TunnelID(1); id <= 4; id++ {
		pool.AddTunnel(&client, readyTunnel(id))
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, ok := pool.SelectOutbound(&client)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()
}

// TestOutboundPoolSkipsExpiredTunnels verifies a tunnel past its lifetime is
// never selected, even before cleanup runs.
func TestOutboundPoolSkipsExpiredTunnels(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultPoolConfig()
	cfg.Now = func() time.Time { return now }
	pool := NewOutboundPool(cfg)
	client := common.Hash{5}

	require.True(t, pool.AddTunnel(nil, &TunnelState{ID: 9, State: TunnelReady, CreatedAt: now.Add(-24 * time.Hour)}))
	require.True(t, pool.AddTunnel(&client, &TunnelState{ID: 10, State: TunnelReady, CreatedAt: now.Add(-time.Minute)}))
	require.True(t, pool.AddTunnel(&client, &TunnelState{ID: 11, State: TunnelReady, CreatedAt: now.Add(-time.Hour)}))

	out, ok := pool.SelectOutbound(nil)
	assert.False(t, ok)
	assert.Nil(t, out)

	for i := 0; i < 3; i++ {
		out, ok = pool.SelectOutbound(&client)
		require.True(t, ok)
		id, _ := out.SendTunnelID(0)
		assert.Equal(t, TunnelID(10), id)
	}

	now = now.Add(cfg.TunnelLifetime)
	_, ok = pool.SelectOutbound(&client)
	assert.False(t, ok, "tunnel expires once its lifetime has passed")
}
