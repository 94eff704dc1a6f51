package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No per-file labels: tokens and names would grow without bound.
var (
	// URLsAllocatedTotal counts playback URLs handed out.
	URLsAllocatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidshelf_playback_urls_allocated_total",
		Help: "Total number of playback URLs allocated.",
	})

	// URLsRevokedTotal counts playback URLs released.
	URLsRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidshelf_playback_urls_revoked_total",
		Help: "Total number of playback URLs revoked.",
	})

	// StreamRequestsTotal counts stream requests by outcome.
	StreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidshelf_playback_stream_requests_total",
		Help: "Total number of stream requests, by result (ok, partial, not_found, open_error).",
	}, []string{"result"})

	// StreamBytesTotal counts body bytes written to players.
	StreamBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidshelf_playback_stream_bytes_total",
		Help: "Total number of bytes streamed to players.",
	})
)
