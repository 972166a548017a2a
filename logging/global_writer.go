package logging

import (
	"io"
	"os"
	"sync"
)

// globalWriter is an io.Writer whose destination can be swapped at runtime.
type globalWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (gw *globalWriter) Write(p []byte) (n int, err error) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.w.Write(p)
}

func (gw *globalWriter) Set(w io.Writer) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.w = w
}

// Stdout belongs to the native host protocol and CLI output, so console
// logging always targets stderr unless redirected.
var defaultGlobalWriter = &globalWriter{w: os.Stderr}

// SetGlobalOutput redirects the console sink of every logger.
func SetGlobalOutput(w io.Writer) {
	defaultGlobalWriter.Set(w)
}

// GetGlobalOutput returns the console sink shared by all loggers.
func GetGlobalOutput() io.Writer {
	return defaultGlobalWriter
}
