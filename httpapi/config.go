package httpapi

import "time"

// Config defines HTTP API settings.
type Config struct {
	Addr string
	// HistoryLimit bounds the stream history kept for Last-Event-ID replay.
	HistoryLimit int
}

const shutdownTimeout = 5 * time.Second
