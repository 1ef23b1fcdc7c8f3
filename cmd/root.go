// Package cmd contains the commands of the halo binary.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

// NewRootCommand lets every child command read its settings from flags,
// DGHALO_ prefixed environment variables, or config.yaml, in that order.
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("DGHALO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	for _, path := range []string{"/etc/dghalo", "$HOME/.dghalo", "."} {
		viper.AddConfigPath(path)
	}

	return &cobra.Command{
		Use:   "halo",
		Short: "Partition a mesh and exercise its halo exchange",
		Long: `halo decomposes a mesh into partitions, builds the border pattern of every
partition and runs repeated halo exchange rounds between them in-process,
checking that every partition ends each round holding its owners' values.`,
		SilenceUsage: true,
	}
}
