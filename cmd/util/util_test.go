package util

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// TestWrapString tests that help texts are wrapped at word boundaries
func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
		if strings.HasPrefix(line, " ") || strings.HasSuffix(line, " ") {
			t.Errorf("Line has surrounding spaces: %q", line)
		}
	}
}

// TestGetClientConfig tests that flags override the defaults of the config source
func TestGetClientConfig(t *testing.T) {
	defer viper.Reset()

	conf, err := GetClientConfig()
	if err != nil {
		t.Fatalf("GetClientConfig failed: %v", err)
	}
	if conf.Endpoint != "127.0.0.1:8080" || conf.Serializer != common.AlgObject {
		t.Errorf("Unexpected defaults %+v", conf)
	}

	viper.Set("endpoint", "/tmp/drpc.sock")
	viper.Set("serializer", "hessian")
	viper.Set("auto-reconnect", true)
	conf, err = GetClientConfig()
	if err != nil {
		t.Fatalf("GetClientConfig failed: %v", err)
	}
	if conf.Endpoint != "/tmp/drpc.sock" || conf.Serializer != common.AlgBinary || !conf.AutoReconnect {
		t.Errorf("Flags not applied: %+v", conf)
	}

	viper.Set("serializer", "xml")
	if _, err := GetClientConfig(); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}

// TestGetTransport tests the transport selection
func TestGetTransport(t *testing.T) {
	defer viper.Reset()

	for _, name := range []string{"tcp", "unix"} {
		viper.Set("transport", name)
		if _, err := GetClientTransport(); err != nil {
			t.Errorf("%s client: %v", name, err)
		}
		if _, err := GetServerTransport(); err != nil {
			t.Errorf("%s server: %v", name, err)
		}
	}

	viper.Set("transport", "http")
	if _, err := GetClientTransport(); err == nil {
		t.Errorf("Expected error for unknown transport")
	}
}

// TestEndpointFlagUsage tests that the endpoint help names the keys the client config is built from
func TestEndpointFlagUsage(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	SetupRPCClientFlags(cmd)

	usage := cmd.PersistentFlags().Lookup("endpoint").Usage
	for _, key := range []string{common.KeyServerIP, common.KeyServerPort} {
		if !strings.Contains(usage, key) {
			t.Errorf("Expected endpoint usage to mention %s: %q", key, usage)
		}
	}
	if strings.Contains(usage, common.KeyProjectPort) {
		t.Errorf("Endpoint usage mentions the listen port key %s: %q", common.KeyProjectPort, usage)
	}
}
