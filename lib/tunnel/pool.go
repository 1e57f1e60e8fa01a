package tunnel

import (
	"fmt"
	"sort"
	"sync"
	"time"

	common "github.com/go-i2p/common/data"
	"github.com/go-i2p/logger"
)

// PoolConfig defines configuration parameters for a tunnel pool
type PoolConfig struct {
	// MaxTunnels is the maximum number of tunnels to allow
	MaxTunnels int
	// TunnelLifetime is how long tunnels should live before expiring
	TunnelLifetime time.Duration
	// Now is the clock used to expire tunnels at selection. Nil uses time.Now.
	Now func() time.Time
}

// DefaultPoolConfig returns a configuration with sensible defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxTunnels:     6,
		TunnelLifetime: 10 * time.Minute,
	}
}

// Pool holds the outbound tunnels of one owner.
type Pool struct {
	tunnels        map[TunnelID]*TunnelState
	mutex          sync.RWMutex
	config         PoolConfig
	selectionIndex int // For round-robin selection
}

// NewTunnelPoolWithConfig creates a new tunnel pool with custom configuration
func NewTunnelPoolWithConfig(config PoolConfig) *Pool {
	return &Pool{
		tunnels: make(map[TunnelID]*TunnelState),
		config:  config,
	}
}

// GetTunnel retrieves a tunnel by ID
func (p *Pool) GetTunnel(id TunnelID) (*TunnelState, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	tunnel, exists := p.tunnels[id]
	return tunnel, exists
}

// AddTunnel adds a new tunnel to the pool. Returns false when the pool is
// full or the tunnel has no usable ID.
func (p *Pool) AddTunnel(tunnel *TunnelState) bool {
	if tunnel == nil || tunnel.ID == 0 {
		return false
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if _, exists := p.tunnels[tunnel.ID]; !exists && p.config.MaxTunnels > 0 && len(p.tunnels) >= p.config.MaxTunnels {
		log.WithFields(logger.Fields{
			"at":          "(Pool) AddTunnel",
			"reason":      "pool full",
			"tunnel_id":   tunnel.ID,
			"max_tunnels": p.config.MaxTunnels,
		}).Warn("rejected tunnel")
		return false
	}
	p.tunnels[tunnel.ID] = tunnel
	log.WithFields(logger.Fields{
		"at":           "(Pool) AddTunnel",
		"reason":       "tunnel registered in pool",
		"tunnel_id":    tunnel.ID,
		"tunnel_state": tunnel.State,
		"hop_count":    len(tunnel.Hops),
		"pool_size":    len(p.tunnels),
	}).Debug("added tunnel to pool")
	return true
}

// RemoveTunnel removes a tunnel from the pool
func (p *Pool) RemoveTunnel(id TunnelID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	tunnel, existed := p.tunnels[id]
	delete(p.tunnels, id)
	log.WithFields(logger.Fields{
		"at":        "(Pool) RemoveTunnel",
		"reason":    "tunnel removed from pool",
		"tunnel_id": id,
		"existed":   existed,
		"tunnel_state": func() string {
			if existed {
				return fmt.Sprintf("%v", tunnel.State)
			}
			return "unknown"
		}(),
		"pool_size": len(p.tunnels),
	}).Debug("removed tunnel from pool")
}

// Size returns the number of tunnels in the pool regardless of state.
func (p *Pool) Size() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.tunnels)
}

// CleanupExpiredTunnels removes tunnels older than the pool's lifetime and
// tunnels whose build failed.
func (p *Pool) CleanupExpiredTunnels(now time.Time) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var expired []TunnelID
	for id, tunnel := range p.tunnels {
		if tunnel.State == TunnelFailed || p.expired(tunnel, now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(p.tunnels, id)
	}

	if len(expired) > 0 {
		log.WithFields(logger.Fields{
			"at":            "(Pool) CleanupExpiredTunnels",
			"reason":        "expired tunnels removed from pool",
			"expired_count": len(expired),
			"lifetime":      p.config.TunnelLifetime,
			"pool_size":     len(p.tunnels),
		}).Debug("cleaned up expired tunnels")
	}
	return len(expired)
}

// SelectTunnel returns the next ready tunnel in round-robin order, or nil.
func (p *Pool) SelectTunnel() *TunnelState {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	active := p.getActiveTunnelsLocked(p.now())
	if len(active) == 0 {
		log.WithFields(logger.Fields{
			"at":        "(Pool) SelectTunnel",
			"reason":    "no active tunnels available for selection",
			"pool_size": len(p.tunnels),
		}).Debug("no active tunnels available")
		return nil
	}

	// Round-robin selection - select first, then increment
	selected := active[p.selectionIndex%len(active)]
	p.selectionIndex++
	return selected
}

func (p *Pool) now() time.Time {
	if p.config.Now != nil {
		return p.config.Now()
	}
	return time.Now()
}

// expired reports whether tunnel has outlived the pool's lifetime.
func (p *Pool) expired(tunnel *TunnelState, now time.Time) bool {
	return p.config.TunnelLifetime > 0 && now.Sub(tunnel.CreatedAt) > p.config.TunnelLifetime
}

// getActiveTunnelsLocked returns ready, unexpired tunnels sorted by ID for
// deterministic order (must hold mutex)
func (p *Pool) getActiveTunnelsLocked(now time.Time) []*TunnelState {
	var active []*TunnelState
	for _, tunnel := range p.tunnels {
		if tunnel.State == TunnelReady && !p.expired(tunnel, now) {
			active = append(active, tunnel)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].ID < active[j].ID
	})

	return active
}

// OutboundPool selects outbound tunnels by owning client. Tunnels not bound
// to a client come from the exploratory pool.
type OutboundPool struct {
	mutex       sync.RWMutex
	config      PoolConfig
	exploratory *Pool
	clients     map[common.Hash]*Pool
}

// NewOutboundPool creates an empty OutboundPool.
func NewOutboundPool(config PoolConfig) *OutboundPool {
	return &OutboundPool{
		config:      config,
		exploratory: NewTunnelPoolWithConfig(config),
		clients:     make(map[common.Hash]*Pool),
	}
}

// poolFor returns the pool for owner, creating it when create is set.
func (o *OutboundPool) poolFor(owner *common.Hash, create bool) *Pool {
	if owner == nil {
		return o.exploratory
	}
	o.mutex.RLock()
	pool, ok := o.clients[*owner]
	o.mutex.RUnlock()
	if ok || !create {
		return pool
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()
	if pool, ok = o.clients[*owner]; !ok {
		pool = NewTunnelPoolWithConfig(o.config)
		o.clients[*owner] = pool
	}
	return pool
}

// AddTunnel registers an outbound tunnel for owner (nil for exploratory).
func (o *OutboundPool) AddTunnel(owner *common.Hash, tunnel *TunnelState) bool {
	return o.poolFor(owner, true).AddTunnel(tunnel)
}

// RemoveTunnel drops a tunnel from owner's pool.
func (o *OutboundPool) RemoveTunnel(owner *common.Hash, id TunnelID) {
	if pool := o.poolFor(owner, false); pool != nil {
		pool.RemoveTunnel(id)
	}
}

// RemoveClient forgets every tunnel owned by a client.
func (o *OutboundPool) RemoveClient(owner common.Hash) {
	o.mutex.Lock()
	delete(o.clients, owner)
	o.mutex.Unlock()
}

// SelectOutbound returns a ready outbound tunnel owned by owner. A client
// with no pool, or with no ready tunnel, gets none; the exploratory pool is
// never substituted for a client's own tunnels.
func (o *OutboundPool) SelectOutbound(owner *common.Hash) (OutboundTunnel, bool) {
	pool := o.poolFor(owner, false)
	if pool == nil {
		log.WithFields(logger.Fields{
			"at":     "(OutboundPool) SelectOutbound",
			"reason": "no pool for client",
			"client": fmt.Sprintf("%x", owner[:8]),
		}).Debug("no outbound tunnel")
		return nil, false
	}
	selected := pool.SelectTunnel()
	if selected == nil {
		return nil, false
	}
	return selected, true
}

// CleanupExpiredTunnels expires tunnels in every pool and returns the number
// removed.
func (o *OutboundPool) CleanupExpiredTunnels(now time.Time) int {
	removed := o.exploratory.CleanupExpiredTunnels(now)
	o.mutex.RLock()
	pools := make([]*Pool, 0, len(o.clients))
	for _, pool := range o.clients {
		pools = append(pools, pool)
	}
	o.mutex.RUnlock()
	for _, pool := range pools {
		removed += pool.CleanupExpiredTunnels(now)
	}
	return removed
}
