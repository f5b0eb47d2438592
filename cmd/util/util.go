package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/ValentinKolb/dRPC/rpc/transport"
	"github.com/ValentinKolb/dRPC/rpc/transport/tcp"
	"github.com/ValentinKolb/dRPC/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

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
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and binds environment variables with the DRPC_ prefix
// (e.g. DRPC_LOG_LEVEL=debug)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("drpc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single call"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "", WrapString("The address of the dRPC server (host:port or a unix socket path). Defaults to server.ip and server.port of the config file"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, WrapString("The maximum size of a frame (header and payload) in bytes"))

	key = "auto-reconnect"
	cmd.PersistentFlags().Bool(key, false, WrapString("Re-dial a lost connection on the next call instead of failing"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetConfigSource loads the file given by the config flag, or only the defaults
func GetConfigSource() (common.ConfigSource, error) {
	src, err := common.LoadConfigSource(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}
	return src, nil
}

// GetSerializer resolves the serializer flag, falling back to the config file
func GetSerializer(src common.ConfigSource) (common.SerializerAlgorithm, error) {
	if name := viper.GetString("serializer"); name != "" {
		return common.ParseSerializerAlgorithm(name)
	}
	return src.GetSerializerAlgorithm(), nil
}

// GetClientConfig reads the client configuration from the config file, flags and environment
func GetClientConfig() (*common.ClientConfig, error) {
	src, err := GetConfigSource()
	if err != nil {
		return nil, err
	}

	conf := common.ClientConfigFromSource(src)
	if endpoint := viper.GetString("endpoint"); endpoint != "" {
		conf.Endpoint = endpoint
	}
	if conf.Serializer, err = GetSerializer(src); err != nil {
		return nil, err
	}
	conf.TimeoutSecond = viper.GetInt("timeout")
	conf.MaxFrameSize = viper.GetInt("max-frame-size")
	conf.AutoReconnect = viper.GetBool("auto-reconnect")

	return &conf, nil
}

// GetClientTransport creates the client transport selected by the transport flag
func GetClientTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the server transport selected by the transport flag
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}
