package depthbook

import "time"

const (
	// Version is the current version of the library
	Version = "v1.0.0"

	// MaxHistory is the default capacity of the per-session history ring
	MaxHistory = 1000

	// CursorLive is the cursor value meaning "follow the live tail"
	CursorLive = -1

	// DefaultURL is the public Kraken v2 websocket endpoint
	DefaultURL = "wss://ws.kraken.com/v2"

	DefaultThrottleInterval = 100 * time.Millisecond
	DefaultReconnectDelay   = 5 * time.Second
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultPingInterval     = 30 * time.Second

	// DefaultImbalanceLevels is how many levels per side Imbalance looks at by default
	DefaultImbalanceLevels = 10
)
