package udpserver

import (
	"net/netip"

	"golang.org/x/time/rate"

	"github.com/yndnr/pointerd/pkg/cmap"
)

// maxLimiters bounds the per-IP table. When it fills up the table is
// cleared and buckets start over.
const maxLimiters = 4096

// limiterTable holds one token bucket per source IP.
type limiterTable struct {
	limiters *cmap.Map[netip.Addr, *rate.Limiter]
	perSec   int
}

// newLimiterTable returns nil when perSecond disables limiting.
func newLimiterTable(perSecond int) *limiterTable {
	if perSecond <= 0 {
		return nil
	}
	return &limiterTable{
		limiters: cmap.New[netip.Addr, *rate.Limiter](),
		perSec:   perSecond,
	}
}

// Allow reports whether one more datagram from ip is within its budget.
func (t *limiterTable) Allow(ip netip.Addr) bool {
	if t == nil {
		return true
	}
	return t.getOrCreate(ip).Allow()
}

func (t *limiterTable) getOrCreate(ip netip.Addr) *rate.Limiter {
	if l, ok := t.limiters.Get(ip); ok {
		return l
	}
	if t.limiters.Count() >= maxLimiters {
		t.limiters.Clear()
	}
	l, _ := t.limiters.GetOrCompute(ip, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(t.perSec), t.perSec)
	})
	return l
}

// Len returns the number of tracked source IPs.
func (t *limiterTable) Len() int {
	if t == nil {
		return 0
	}
	return t.limiters.Count()
}
