package translator

import (
	"net"
	"sync"
	"time"
)

const (
	probeAddress  = "translation.googleapis.com:443"
	probeTimeout  = 2 * time.Second
	probeCacheTTL = 10 * time.Second
)

// NetProbe checks reachability of the translation vendor by opening a TCP
// connection. Results are cached briefly so the orchestrator's per-request
// probe stays cheap.
type NetProbe struct {
	mu        sync.Mutex
	online    bool
	checkedAt time.Time
}

// NewNetProbe returns a probe that assumes online until the first check.
func NewNetProbe() *NetProbe {
	return &NetProbe{online: true}
}

// IsOnline reports whether the vendor endpoint is reachable.
func (p *NetProbe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.checkedAt) < probeCacheTTL {
		return p.online
	}

	conn, err := net.DialTimeout("tcp", probeAddress, probeTimeout)
	if err == nil {
		conn.Close()
	}
	p.online = err == nil
	p.checkedAt = time.Now()
	return p.online
}
