package run

import (
	"fmt"
	"github.com/notargets/DGHalo/partitions"
	"time"
)

// Config is the complete configuration of a run
type Config struct {
	Mesh      MeshConfig
	Partition PartitionConfig
	Exchange  ExchangeConfig
	Log       LogConfig
}

// MeshConfig selects the mesh: a file when File is set, otherwise an
// Nx by Ny structured grid
type MeshConfig struct {
	File string
	Nx   int
	Ny   int
}

type PartitionConfig struct {
	Parts    int
	Strategy string // block or roundrobin
	// Ownership picks the owner of shared nodes: lowest or highest
	// referencing partition
	Ownership string
	// FromMesh uses the partition tags of the mesh file when present
	FromMesh bool
}

type ExchangeConfig struct {
	Components int // Dofs per node
	Rounds     int
	Timeout    time.Duration // Bound on every receive, 0 waits forever
	Depth      int           // Queued messages per link
}

type LogConfig struct {
	Format string
	Level  string
}

// DefaultConfig returns the settings used when nothing overrides them
func DefaultConfig() *Config {
	return &Config{
		Mesh: MeshConfig{
			Nx: 16,
			Ny: 16,
		},
		Partition: PartitionConfig{
			Parts:     4,
			Strategy:  "block",
			Ownership: "lowest",
			FromMesh:  true,
		},
		Exchange: ExchangeConfig{
			Components: 1,
			Rounds:     3,
			Timeout:    10 * time.Second,
			Depth:      4,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Verify checks the values that would otherwise fail deep inside a run
func (c *Config) Verify() error {
	if c.Mesh.File == "" && (c.Mesh.Nx < 1 || c.Mesh.Ny < 1) {
		return fmt.Errorf("grid size %dx%d must be positive", c.Mesh.Nx, c.Mesh.Ny)
	}
	if c.Partition.Parts < 1 {
		return fmt.Errorf("parts must be at least 1, got %d", c.Partition.Parts)
	}
	if _, err := partitions.ParseStrategy(c.Partition.Strategy); err != nil {
		return err
	}
	if _, err := ownershipPolicy(c.Partition.Ownership); err != nil {
		return err
	}
	if c.Exchange.Components < 1 {
		return fmt.Errorf("components must be at least 1, got %d", c.Exchange.Components)
	}
	if c.Exchange.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", c.Exchange.Rounds)
	}
	if c.Exchange.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Exchange.Timeout)
	}
	return nil
}

func ownershipPolicy(name string) (partitions.OwnershipPolicy, error) {
	switch name {
	case "lowest":
		return partitions.LowestReferencingPart, nil
	case "highest":
		return partitions.HighestReferencingPart, nil
	}
	return nil, fmt.Errorf("unknown ownership policy %q", name)
}
