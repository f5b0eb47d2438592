package call

import (
	"github.com/ValentinKolb/dRPC/cmd/util"
	"github.com/ValentinKolb/dRPC/lib/arith"
	"github.com/ValentinKolb/dRPC/lib/hello"
	"github.com/ValentinKolb/dRPC/rpc/client"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/spf13/cobra"
)

var (
	rpcClient  *client.Client
	rpcHello   hello.IHelloService
	rpcArith   arith.IArithService
	clientConf *common.ClientConfig

	// CallCommands represents the call command group
	CallCommands = &cobra.Command{
		Use:                "call",
		Short:              "Call the example services of a dRPC server",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: closeClient,
	}
)

func init() {
	// Add common RPC flags to the call command
	util.SetupRPCClientFlags(CallCommands)

	// Add subcommands
	CallCommands.AddCommand(helloCmd)
	CallCommands.AddCommand(addCmd)
	CallCommands.AddCommand(divideCmd)
	CallCommands.AddCommand(swapCmd)
	CallCommands.AddCommand(perfTestCmd)
}

// setupClient connects the RPC client and creates the service stubs
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// the client only logs warnings unless asked otherwise
	if err := common.InitLoggers("warn"); err != nil {
		return err
	}

	var err error
	if clientConf, err = util.GetClientConfig(); err != nil {
		return err
	}

	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	rpcClient = client.NewClient(*clientConf, t)
	if err := rpcClient.Connect(); err != nil {
		return err
	}

	rpcHello = client.NewRPCHelloService(rpcClient)
	rpcArith = client.NewRPCArithService(rpcClient)
	return nil
}

// closeClient closes the connection after the command finished
func closeClient(_ *cobra.Command, _ []string) error {
	if rpcClient == nil {
		return nil
	}
	return rpcClient.Close()
}
