package run

import (
	"github.com/notargets/DGHalo/cmd/util"
	"github.com/spf13/cobra"
)

// bindRunFlags binds the cobra flags to the viper keys of Config
func bindRunFlags(command *cobra.Command) {
	defaultConfig := DefaultConfig()
	flags := command.Flags()

	flags.String("mesh", defaultConfig.Mesh.File, "mesh file to read (.neu, .msh, .su2); a structured grid is generated when empty")
	util.MustBindPFlag("mesh.file", flags.Lookup("mesh"))
	util.MustBindEnv("mesh.file", "DGHALO_MESH")

	flags.Int("nx", defaultConfig.Mesh.Nx, "grid elements in x")
	util.MustBindPFlag("mesh.nx", flags.Lookup("nx"))

	flags.Int("ny", defaultConfig.Mesh.Ny, "grid elements in y")
	util.MustBindPFlag("mesh.ny", flags.Lookup("ny"))

	flags.Int("parts", defaultConfig.Partition.Parts, "number of partitions")
	util.MustBindPFlag("partition.parts", flags.Lookup("parts"))
	util.MustBindEnv("partition.parts", "DGHALO_PARTS")

	flags.String("strategy", defaultConfig.Partition.Strategy, "element assignment when the mesh carries none: block or roundrobin")
	util.MustBindPFlag("partition.strategy", flags.Lookup("strategy"))

	flags.String("ownership", defaultConfig.Partition.Ownership, "owner of shared nodes: lowest or highest referencing partition")
	util.MustBindPFlag("partition.ownership", flags.Lookup("ownership"))

	flags.Bool("from-mesh", defaultConfig.Partition.FromMesh, "use partition tags from the mesh file when present")
	util.MustBindPFlag("partition.frommesh", flags.Lookup("from-mesh"))

	flags.Int("components", defaultConfig.Exchange.Components, "dofs carried by every node")
	util.MustBindPFlag("exchange.components", flags.Lookup("components"))

	flags.Int("rounds", defaultConfig.Exchange.Rounds, "halo exchange rounds to run")
	util.MustBindPFlag("exchange.rounds", flags.Lookup("rounds"))

	flags.Duration("timeout", defaultConfig.Exchange.Timeout, "bound on every receive, 0 waits forever")
	util.MustBindPFlag("exchange.timeout", flags.Lookup("timeout"))

	flags.Int("depth", defaultConfig.Exchange.Depth, "messages queued per link before a send blocks")
	util.MustBindPFlag("exchange.depth", flags.Lookup("depth"))

	flags.String("log-format", defaultConfig.Log.Format, "log format: text or json")
	util.MustBindPFlag("log.format", flags.Lookup("log-format"))
	util.MustBindEnv("log.format", "DGHALO_LOG_FORMAT")

	flags.String("log-level", defaultConfig.Log.Level, "log level: none, debug, info, warn or error")
	util.MustBindPFlag("log.level", flags.Lookup("log-level"))
	util.MustBindEnv("log.level", "DGHALO_LOG_LEVEL")
}
