package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dRPC/cmd/util"
	"github.com/ValentinKolb/dRPC/lib/arith"
	"github.com/ValentinKolb/dRPC/lib/hello"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dRPC server",
		Long:    `Start the dRPC server hosting the hello and arith services. The configuration can be set via a config file, command line flags or environment variables. The format of the environment variables is DRPC_<flag> (e.g. DRPC_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:8080, /tmp/drpc.sock). Defaults to 0.0.0.0 and project.port of the config file"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Idle timeout of a connection in seconds (0 disables it)"))

	key = "handler-timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Maximum execution time of a single call in seconds (0 disables it)"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, cmdUtil.WrapString("The maximum size of a frame (header and payload) in bytes. Larger frames close the connection"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, common.DefaultWorkersPerConn, cmdUtil.WrapString("Number of requests executed concurrently per connection"))

	key = "rate-limit"
	ServeCmd.PersistentFlags().Float64(key, 0, cmdUtil.WrapString("Permitted requests per second over all connections (0 disables the limit)"))

	key = "rate-burst"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("Number of requests that may exceed the rate limit in a burst"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the prometheus /metrics endpoint (e.g. localhost:9090, empty disables it)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the config file, command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	src, err := cmdUtil.GetConfigSource()
	if err != nil {
		return err
	}
	*serveCmdConfig = common.ServerConfigFromSource(src)

	if endpoint := viper.GetString("endpoint"); endpoint != "" {
		serveCmdConfig.Endpoint = endpoint
	} else if viper.GetString("transport") == "unix" {
		return fmt.Errorf("the unix transport requires an --endpoint socket path")
	}
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.HandlerTimeoutSecond = viper.GetInt64("handler-timeout")
	serveCmdConfig.MaxFrameSize = viper.GetInt("max-frame-size")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers")
	serveCmdConfig.RateLimit = viper.GetFloat64("rate-limit")
	serveCmdConfig.RateBurst = viper.GetInt("rate-burst")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.MaxFrameSize < 16 {
		return fmt.Errorf("max-frame-size must be at least 16 bytes, got %d", serveCmdConfig.MaxFrameSize)
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the dRPC server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t)
	if err := serv.Register(server.NewHelloServiceDesc(hello.NewHelloService())); err != nil {
		return err
	}
	if err := serv.Register(server.NewArithServiceDesc(arith.NewArithService())); err != nil {
		return err
	}

	// Shutdown on signal, in-flight requests are still answered
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		server.Logger.Infof("Received %s", sig)
		if err := serv.Shutdown(5 * time.Second); err != nil {
			server.Logger.Errorf("Shutdown failed: %v", err)
		}
	}()

	return serv.Serve()
}
