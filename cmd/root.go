package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dRPC/cmd/call"
	"github.com/ValentinKolb/dRPC/cmd/serve"
	"github.com/ValentinKolb/dRPC/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "drpc",
		Short: "minimal RPC framework",
		Long: fmt.Sprintf(`dRPC (v%s)

A minimal RPC framework written in Go: framed messages over a single
TCP or unix socket connection, pluggable serializers and concurrent
calls correlated by sequence id.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dRPC",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dRPC v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(call.CallCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("serializer to use (object, json, binary). Defaults to serializer.algorithm of the config file"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "config"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("optional config file (e.g. config.properties) with server.ip, server.port, project.port and serializer.algorithm"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
