package health

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// GeocoderMonitor periodically probes the geocoding service host and
// tracks whether it is reachable. While it is down, resolution endpoints
// tell clients to fall back to manual dropdown selection instead of
// waiting out request timeouts.
type GeocoderMonitor struct {
	host      string
	interval  time.Duration
	available atomic.Bool
}

// NewMonitor creates a monitor for the given host. Assumed reachable
// until the first probe says otherwise.
func NewMonitor(host string, intervalSec int) *GeocoderMonitor {
	m := &GeocoderMonitor{
		host:     host,
		interval: time.Duration(intervalSec) * time.Second,
	}
	m.available.Store(true)
	return m
}

// Available reports the last known reachability of the geocoder.
func (m *GeocoderMonitor) Available() bool {
	return m.available.Load()
}

// Start probes immediately, then every interval. Blocks until ctx is cancelled.
func (m *GeocoderMonitor) Start(ctx context.Context) {
	m.check()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *GeocoderMonitor) check() {
	up := pingHost(m.host)
	was := m.available.Swap(up)
	if was != up {
		if up {
			log.Printf("[health] geocoder %s is reachable again", m.host)
		} else {
			log.Printf("[health] geocoder %s is unreachable, resolution degraded to manual", m.host)
		}
	}
}

// pingHost sends ICMP pings to the target and returns true if reachable.
func pingHost(target string) bool {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		log.Printf("[health] failed to create pinger for %s: %v", target, err)
		return false
	}
	pinger.Count = 3
	pinger.Timeout = 5 * time.Second
	pinger.SetPrivileged(true)
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
