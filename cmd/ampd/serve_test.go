package main

import (
	"testing"

	"ampd/internal/config"
)

// A listen failure must come back as an error from runServe after the pump
// and engine wind down, never short-circuit the process.
func TestRunServeReturnsListenError(t *testing.T) {
	err := runServe(config.Config{
		Addr:       "256.256.256.256:0",
		SampleRate: 48000,
		BlockSize:  64,
	})
	if err == nil {
		t.Fatal("expected a listen error for an unroutable address")
	}
}
