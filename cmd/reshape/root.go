package reshape

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/dReshard/cmd/util"
	"github.com/ValentinKolb/dReshard/lib/bench"
	"github.com/ValentinKolb/dReshard/lib/snapshot"
	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/c2h5oh/datasize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	worldConfig   common.WorldConfig
	reshapeConfig common.ReshapeConfig

	// ReshapeCmd copies a snapshot set into the native container format
	ReshapeCmd = &cobra.Command{
		Use:   "reshape",
		Short: "Rewrite a snapshot set with a group of ranks",
		Long: `Rewrite every file <base>.<i>.<ext> of the input directory into
<output>/<base>.<i>.dsnap. The ranks are split into one island per file; each
island reads its file and writes it back with the selected strategies.

The configuration can be set via command line flags or environment variables.
The format of the environment variables is DRESHARD_<flag> (e.g. DRESHARD_READ=serial)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupWorldFlags(ReshapeCmd)
	util.SetupReshapeFlags(ReshapeCmd)

	key := "output"
	ReshapeCmd.Flags().String(key, "", util.WrapString("Directory for the rewritten snapshot set (created if missing)"))

	ReshapeCmd.AddCommand(perfCmd)
}

// processConfig reads the flags and environment variables into the world and reshape configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	if worldConfig, err = util.GetWorldConfig(); err != nil {
		return err
	}
	if viper.GetString("output") == "" {
		return fmt.Errorf("--output is required")
	}
	reshapeConfig, err = util.GetReshapeConfig(viper.GetString("output"))
	if err != nil {
		return err
	}

	return common.InitLoggers(worldConfig.LogLevel)
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if util.IsRootProcess(worldConfig) {
		fmt.Print(worldConfig.String())
		fmt.Print(reshapeConfig.String())
		fmt.Println()
	}

	fs := afero.NewOsFs()
	err := util.RunWorld(ctx, worldConfig, func(ctx context.Context, c *comm.Comm) error {
		rec := bench.NewRecorder()
		res, err := snapshot.Reshape(ctx, c, snapshot.Options{
			ReshapeConfig: reshapeConfig,
			Fs:            fs,
			Recorder:      rec,
		})
		if err != nil {
			return err
		}
		if res.Topology.IsIslandRoot() {
			util.Logger.Infof("%s: %s -> %s (%s, %s held by the island root)", res.Topology, res.Source,
				res.Destination, res.Presence, datasize.ByteSize(res.Bytes).HumanReadable())
		}

		reports, err := rec.Report(ctx, c)
		if err != nil {
			return err
		}
		if c.IsRoot() {
			fmt.Printf("\nPhases over %d ranks:\n", c.Size())
			for _, r := range reports {
				fmt.Println(r)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return util.WriteMetrics(viper.GetString("metrics-out"), worldConfig, bench.WritePrometheus)
}
