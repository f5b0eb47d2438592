package common

import (
	"net"
	"strconv"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/viper"
)

var configLogger = logger.GetLogger("config")

// Keys understood by a ConfigSource, identical to the original properties file
const (
	KeyServerIP            = "server.ip"
	KeyServerPort          = "server.port"
	KeyProjectPort         = "project.port"
	KeySerializerAlgorithm = "serializer.algorithm"
)

// ConfigSource is the accessor for process configuration. A missing key
// falls back to its default instead of failing.
type ConfigSource interface {
	// GetServerIP returns the address of the server to call (default 127.0.0.1)
	GetServerIP() string
	// GetServerPort returns the port of the server to call (default 8080)
	GetServerPort() uint16
	// GetProjectPort returns the port the local server listens on (default 8080)
	GetProjectPort() uint16
	// GetSerializerAlgorithm returns the configured serializer (default structured-object)
	GetSerializerAlgorithm() SerializerAlgorithm
}

// NewViperSource wraps v (viper.GetViper() if nil) as a ConfigSource
func NewViperSource(v *viper.Viper) ConfigSource {
	if v == nil {
		v = viper.GetViper()
	}
	v.SetDefault(KeyServerIP, "127.0.0.1")
	v.SetDefault(KeyServerPort, 8080)
	v.SetDefault(KeyProjectPort, 8080)
	v.SetDefault(KeySerializerAlgorithm, AlgObject.String())
	return &viperSource{v: v}
}

// LoadConfigSource reads the configuration file at path (any format viper
// understands). An empty path yields a source with only the defaults.
func LoadConfigSource(path string) (ConfigSource, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return NewViperSource(v), nil
}

type viperSource struct {
	v *viper.Viper
}

// --------------------------------------------------------------------------
// Interface Methods (docu see common.ConfigSource)
// --------------------------------------------------------------------------

func (s *viperSource) GetServerIP() string {
	return s.v.GetString(KeyServerIP)
}

func (s *viperSource) GetServerPort() uint16 {
	return s.v.GetUint16(KeyServerPort)
}

func (s *viperSource) GetProjectPort() uint16 {
	return s.v.GetUint16(KeyProjectPort)
}

func (s *viperSource) GetSerializerAlgorithm() SerializerAlgorithm {
	alg, err := ParseSerializerAlgorithm(s.v.GetString(KeySerializerAlgorithm))
	if err != nil {
		configLogger.Warningf("%v, falling back to %s", err, AlgObject)
		return AlgObject
	}
	return alg
}

// --------------------------------------------------------------------------
// Config factories
// --------------------------------------------------------------------------

// ClientConfigFromSource derives a client configuration from src
func ClientConfigFromSource(src ConfigSource) ClientConfig {
	return ClientConfig{
		Endpoint:   net.JoinHostPort(src.GetServerIP(), strconv.Itoa(int(src.GetServerPort()))),
		Serializer: src.GetSerializerAlgorithm(),
	}
}

// ServerConfigFromSource derives a server configuration from src
func ServerConfigFromSource(src ConfigSource) ServerConfig {
	return ServerConfig{
		Endpoint: net.JoinHostPort("0.0.0.0", strconv.Itoa(int(src.GetProjectPort()))),
		LogLevel: "info",
	}
}
