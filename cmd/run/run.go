// Package run contains the command that decomposes a mesh and drives halo
// exchange rounds between all of its partitions in one process.
package run

import (
	"context"
	"errors"
	"fmt"
	"github.com/notargets/DGHalo/comm"
	"github.com/notargets/DGHalo/field"
	"github.com/notargets/DGHalo/mesh"
	"github.com/notargets/DGHalo/mesh/readers"
	"github.com/notargets/DGHalo/metrics"
	"github.com/notargets/DGHalo/partitions"
	"github.com/notargets/DGHalo/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"math"
	"slices"
	"time"
)

// NewRunCommand returns the run command
func NewRunCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "run",
		Short: "Decompose a mesh and run halo exchange rounds between its partitions",
		Args:  cobra.NoArgs,
		RunE:  runCommand,
	}
	bindRunFlags(command)
	return command
}

// ReadConfig merges defaults, config.yaml, environment and flags
func ReadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	if err := viper.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

func runCommand(cmd *cobra.Command, _ []string) error {
	config, err := ReadConfig()
	if err != nil {
		return err
	}
	if err = config.Verify(); err != nil {
		return err
	}
	logger, err := utils.NewLogger(config.Log.Format, config.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	report, err := Run(cmd.Context(), config, logger)
	if err != nil {
		logger.Error("halo run failed", zap.Error(err))
		return err
	}
	logger.Info("halo run complete",
		zap.Int("parts", report.Parts),
		zap.Int("nodes", report.Nodes),
		zap.Int("dofs", report.Dofs),
		zap.Int("borders", report.Borders),
		zap.Int("rounds", report.Rounds),
		zap.Int("values_checked", report.Checked),
		zap.Float64("sent_bytes", report.SentBytes),
		zap.Float64("received_bytes", report.RecvBytes),
		zap.Duration("elapsed", report.Elapsed))
	return nil
}

// Report summarizes a completed run
type Report struct {
	Parts     int
	Nodes     int
	Elements  int
	Dofs      int // Global dof count
	Borders   int // Directed borders over all partitions
	Rounds    int
	Checked   int // Local dof values verified after exchanges
	SentBytes float64
	RecvBytes float64
	Elapsed   time.Duration
}

// Run decomposes the configured mesh and runs every partition on its own
// goroutine, connected through an in-process world. After every round each
// partition checks that all of its local values, owned or received, are the
// ones the owners wrote.
func Run(ctx context.Context, config *Config, logger *zap.Logger) (*Report, error) {
	start := time.Now()
	m, err := loadMesh(config.Mesh)
	if err != nil {
		return nil, err
	}
	d, err := decompose(m, config.Partition, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	ex, err := metrics.NewExchange(reg)
	if err != nil {
		return nil, err
	}
	world := comm.NewWorld(d.NumParts,
		comm.WithTimeout(config.Exchange.Timeout),
		comm.WithDepth(config.Exchange.Depth))
	defer world.Close()

	ncomp := config.Exchange.Components
	parts := make([]*partitions.Partition, d.NumParts)
	checked := make([]int, d.NumParts)
	g, gctx := errgroup.WithContext(ctx)
	for rank := range parts {
		g.Go(func() error {
			p, err := partitions.New(gctx, m, d, rank,
				partitions.WithCommunicator(world.Endpoint(rank)),
				partitions.WithLogger(logger),
				partitions.WithMetrics(ex),
				partitions.WithDofs(partitions.UniformDofs(ncomp)))
			if err == nil {
				parts[rank] = p
				checked[rank], err = exchangeRounds(gctx, p, ncomp, config.Exchange.Rounds)
			}
			if err != nil {
				// Unblock neighbours still waiting on this partition
				world.Close()
			}
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	if err = partitions.VerifySymmetry(parts); err != nil {
		return nil, err
	}

	report := &Report{
		Parts:    d.NumParts,
		Nodes:    m.NumNodes,
		Elements: m.NumElements,
		Dofs:     parts[0].Numbering.NumDofs(),
		Rounds:   config.Exchange.Rounds,
		Elapsed:  time.Since(start),
	}
	for rank, p := range parts {
		report.Borders += p.Info.NBorder
		report.Checked += checked[rank]
	}
	if report.SentBytes, err = sumCounter(reg, "dghalo_exchange_sent_bytes_total"); err != nil {
		return nil, err
	}
	if report.RecvBytes, err = sumCounter(reg, "dghalo_exchange_received_bytes_total"); err != nil {
		return nil, err
	}
	return report, nil
}

func loadMesh(config MeshConfig) (*mesh.Mesh, error) {
	if config.File != "" {
		return readers.ReadMeshFile(config.File)
	}
	return mesh.NewGrid2D(config.Nx, config.Ny)
}

func decompose(m *mesh.Mesh, config PartitionConfig, logger *zap.Logger) (*partitions.Decomposition, error) {
	policy, err := ownershipPolicy(config.Ownership)
	if err != nil {
		return nil, err
	}
	var (
		eToP   []int
		nparts = config.Parts
	)
	if config.FromMesh && m.EToP != nil {
		eToP = m.EToP
		nparts = slices.Max(eToP) + 1
		logger.Info("using mesh partition tags", zap.Int("parts", nparts))
	} else {
		strategy, err := partitions.ParseStrategy(config.Strategy)
		if err != nil {
			return nil, err
		}
		if eToP, err = partitions.PartitionElements(m.NumElements, nparts, strategy); err != nil {
			return nil, err
		}
	}
	d, err := partitions.NewDecomposition(m, nparts, eToP, policy)
	if err != nil {
		return nil, err
	}

	stats := d.Statistics()
	logger.Info("decomposition",
		zap.Int("parts", stats.NumPartitions),
		zap.Int("min_elements", stats.MinElements),
		zap.Int("max_elements", stats.MaxElements),
		zap.Float64("imbalance", stats.Imbalance))
	return d, nil
}

// haloValue is what the owner of a dof writes in a given round
func haloValue(globalDof, round int) float64 {
	return float64(globalDof) + 1e6*float64(round)
}

func exchangeRounds(ctx context.Context, p *partitions.Partition, ncomp, rounds int) (int, error) {
	f := field.NewDense(p.Local.NumNodes(), ncomp)
	nnodes := p.Local.NumNodes()
	want := make([]float64, ncomp)
	checked := 0
	for round := 0; round < rounds; round++ {
		for l := 0; l < nnodes; l++ {
			vals := f.NodeValues(l)
			for j, id := range p.GlobalDofs(l) {
				if p.Owner(l) == p.Info.Part {
					vals[j] = haloValue(id, round)
				} else {
					vals[j] = math.NaN()
				}
			}
		}
		if err := p.Exchange(ctx, f); err != nil {
			return checked, err
		}
		for l := 0; l < nnodes; l++ {
			for j, id := range p.GlobalDofs(l) {
				want[j] = haloValue(id, round)
			}
			if got := f.NodeValues(l); !floats.Equal(got, want) {
				return checked, fmt.Errorf("part %d round %d: node %d holds %v, owner %d wrote %v",
					p.Info.Part, round, p.GlobalNode(l), got, p.Owner(l), want)
			}
			checked += ncomp
		}
	}
	return checked, nil
}

func sumCounter(reg *prometheus.Registry, name string) (float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total, nil
}
