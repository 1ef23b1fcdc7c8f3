package run

import (
	"context"
	"github.com/notargets/DGHalo/cmd"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() *Config {
	config := DefaultConfig()
	config.Mesh.Nx, config.Mesh.Ny = 8, 6
	config.Partition.Parts = 3
	config.Exchange.Rounds = 2
	config.Exchange.Components = 2
	config.Exchange.Timeout = 5 * time.Second
	config.Log.Level = "none"
	return config
}

func TestRun_Grid(t *testing.T) {
	config := testConfig()
	require.NoError(t, config.Verify())

	report, err := Run(context.Background(), config, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Parts)
	assert.Equal(t, 9*7, report.Nodes)
	assert.Equal(t, 8*6, report.Elements)
	assert.Equal(t, 2*9*7, report.Dofs)
	assert.Equal(t, 4, report.Borders, "block strips: 0-1 and 1-2 in both directions")
	// Every local value of every partition, owned or received, checked each round
	assert.GreaterOrEqual(t, report.Checked, 2*report.Dofs)
	assert.Positive(t, report.SentBytes)
	assert.Equal(t, report.SentBytes, report.RecvBytes)
}

func TestRun_Variants(t *testing.T) {
	for _, tc := range []struct {
		name      string
		strategy  string
		ownership string
		parts     int
	}{
		{"roundrobin-lowest", "roundrobin", "lowest", 3},
		{"block-highest", "block", "highest", 4},
		{"single", "block", "lowest", 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			config := testConfig()
			config.Partition.Strategy = tc.strategy
			config.Partition.Ownership = tc.ownership
			config.Partition.Parts = tc.parts

			report, err := Run(context.Background(), config, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tc.parts, report.Parts)
			assert.Equal(t, report.SentBytes, report.RecvBytes)
			if tc.parts == 1 {
				assert.Zero(t, report.Borders)
			}
		})
	}
}

func TestConfig_Verify(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"grid":       func(c *Config) { c.Mesh.Nx = 0 },
		"parts":      func(c *Config) { c.Partition.Parts = 0 },
		"strategy":   func(c *Config) { c.Partition.Strategy = "metis" },
		"ownership":  func(c *Config) { c.Partition.Ownership = "random" },
		"components": func(c *Config) { c.Exchange.Components = 0 },
		"rounds":     func(c *Config) { c.Exchange.Rounds = 0 },
		"timeout":    func(c *Config) { c.Exchange.Timeout = -time.Second },
	} {
		config := testConfig()
		mutate(config)
		assert.Error(t, config.Verify(), name)
	}
	assert.NoError(t, DefaultConfig().Verify())
}

func TestReadConfig_FlagsAndEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	t.Setenv("DGHALO_PARTS", "5")
	command := NewRunCommand()
	require.NoError(t, command.Flags().Parse([]string{"--nx", "3", "--timeout", "250ms", "--strategy", "roundrobin"}))

	config, err := ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, config.Mesh.Nx)
	assert.Equal(t, 16, config.Mesh.Ny)
	assert.Equal(t, 5, config.Partition.Parts)
	assert.Equal(t, "roundrobin", config.Partition.Strategy)
	assert.Equal(t, 250*time.Millisecond, config.Exchange.Timeout)
}

func TestRunCommand(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	root := cmd.NewRootCommand()
	root.AddCommand(NewRunCommand())
	root.SetArgs([]string{"run", "--nx", "4", "--ny", "4", "--parts", "2", "--rounds", "1", "--log-level", "none"})
	require.NoError(t, root.Execute())
}
