package utils

import (
	"fmt"
	"github.com/notargets/gocca"
)

// DefaultBackends lists OCCA device properties in order of preference
var DefaultBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// CreateDevice returns the first OCCA device that can be created, trying
// backends in order. DefaultBackends is used when none are given.
func CreateDevice(backends ...string) (*gocca.OCCADevice, error) {
	if len(backends) == 0 {
		backends = DefaultBackends
	}
	var lastErr error
	for _, props := range backends {
		device, err := gocca.NewDevice(props)
		if err == nil {
			return device, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to create any device: %w", lastErr)
}
