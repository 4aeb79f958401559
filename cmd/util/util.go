package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/dReshard/rpc/comm"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/ValentinKolb/dReshard/rpc/serializer"
	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// SetupWorldFlags adds the flags that describe how this process joins the world
func SetupWorldFlags(cmd *cobra.Command) {
	key := "workers"
	cmd.PersistentFlags().Int(key, 4, WrapString("Number of ranks of the local transport (every rank runs in this process)"))

	key = "rank"
	cmd.PersistentFlags().Int(key, 0, WrapString("Rank of this process (tcp and unix transport)"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, "", WrapString("Comma-separated listen addresses of all ranks in rank order (tcp and unix transport, e.g. host-a:7000,host-b:7000 or /tmp/r0.sock,/tmp/r1.sock)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 0, WrapString("Timeout in seconds of a single receive (0 waits forever)"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 10, WrapString("How many times to retry dialing a peer that is not up yet"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().String(key, "512KB", WrapString("Size of the socket write buffer (e.g. 512KB, 4MB)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().String(key, "512KB", WrapString("Size of the socket read buffer (e.g. 512KB, 4MB)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp transport only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (tcp transport only)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time in seconds (tcp transport only)"))
}

// SetupReshapeFlags adds the input directory and strategy flags
func SetupReshapeFlags(cmd *cobra.Command) {
	key := "input"
	cmd.Flags().String(key, "", WrapString("Directory holding the snapshot set <base>.<i>.<ext>"))

	key = "read"
	cmd.Flags().String(key, string(common.StrategyParallel), WrapString("Read strategy (parallel, serial)"))

	key = "write"
	cmd.Flags().String(key, string(common.StrategyParallel), WrapString("Write strategy (parallel, serial)"))

	key = "metrics-out"
	cmd.Flags().String(key, "", WrapString("Optional path to save the byte and row counters in the Prometheus text format"))
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dreshard")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetWorldConfig reads the world configuration from viper
func GetWorldConfig() (common.WorldConfig, error) {
	writeBuf, err := parseSize("transport-write-buffer")
	if err != nil {
		return common.WorldConfig{}, err
	}
	readBuf, err := parseSize("transport-read-buffer")
	if err != nil {
		return common.WorldConfig{}, err
	}

	conf := common.WorldConfig{
		Transport:     common.TransportType(viper.GetString("transport")),
		Serializer:    viper.GetString("serializer"),
		Rank:          viper.GetInt("rank"),
		Workers:       viper.GetInt("workers"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("transport-retries"),
		SocketConf: common.SocketConf{
			WriteBufferSize: writeBuf,
			ReadBufferSize:  readBuf,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		},
		LogLevel: viper.GetString("log-level"),
	}
	if eps := viper.GetString("endpoints"); eps != "" {
		for _, ep := range strings.Split(eps, ",") {
			conf.Endpoints = append(conf.Endpoints, strings.TrimSpace(ep))
		}
	}

	return conf, conf.Validate()
}

// GetReshapeConfig reads the reshape configuration from viper. The output
// directory is passed in since its flag differs per command.
func GetReshapeConfig(outputDir string) (common.ReshapeConfig, error) {
	conf := common.ReshapeConfig{
		InputDir:  viper.GetString("input"),
		OutputDir: outputDir,
	}
	if conf.InputDir == "" {
		return conf, fmt.Errorf("--input is required")
	}

	var err error
	if conf.ReadStrategy, err = common.ParseStrategy(viper.GetString("read")); err != nil {
		return conf, err
	}
	if conf.WriteStrategy, err = common.ParseStrategy(viper.GetString("write")); err != nil {
		return conf, err
	}
	return conf, nil
}

func parseSize(key string) (int, error) {
	size, err := datasize.ParseString(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, viper.GetString(key), err)
	}
	return int(size.Bytes()), nil
}

// --------------------------------------------------------------------------
// World
// --------------------------------------------------------------------------

// IsRootProcess reports whether this process hosts rank 0 of the world
func IsRootProcess(conf common.WorldConfig) bool {
	return conf.Transport == common.TransportLocal || conf.Rank == 0
}

// RunWorld runs fn on the ranks hosted by this process. The local transport
// runs every rank as a goroutine; tcp and unix join the world as a single rank.
func RunWorld(ctx context.Context, conf common.WorldConfig, fn comm.RankFunc) error {
	if conf.Transport == common.TransportLocal {
		ser, err := serializer.ByName(conf.Serializer)
		if err != nil {
			return err
		}
		return comm.RunLocalWith(ctx, conf.Workers, ser, fn)
	}

	c, tr, err := comm.Join(conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(); err != nil {
			Logger.Warningf("failed to close transport: %v", err)
		}
	}()
	return fn(ctx, c)
}

// WriteMetrics saves the Prometheus counters of this process to path. When
// the world spans several processes, the rank is appended to the file name.
func WriteMetrics(path string, conf common.WorldConfig, write func(w io.Writer)) error {
	if path == "" {
		return nil
	}
	if conf.Transport != common.TransportLocal {
		path = fmt.Sprintf("%s.%d", path, conf.Rank)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %v", err)
	}
	defer f.Close()
	write(f)
	return nil
}
