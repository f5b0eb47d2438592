package unix

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
)

var echo = common.MethodDescriptor{
	Name:       "Echo",
	ParamTypes: []common.TypeDescriptor{common.TypeString},
	ReturnType: common.TypeString,
}

// TestUnixRoundTrip tests a call over a unix domain socket
func TestUnixRoundTrip(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "drpc.sock")

	server := NewUnixServerTransport()
	server.RegisterHandler(func(_ context.Context, req *common.RequestMessage) *common.ResponseMessage {
		return common.NewSuccessResponse(req.SequenceID, req.ParameterValues[0])
	})
	go func() {
		if err := server.Listen(common.ServerConfig{Endpoint: socket}); err != nil {
			t.Errorf("Listen failed: %v", err)
		}
	}()
	defer server.Shutdown(time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("Server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	client := NewUnixClientTransport()
	if err := client.Connect(common.ClientConfig{Endpoint: socket, TimeoutSecond: 2}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Call(ctx, common.AlgBinary, common.NewRequest(5, "IEcho", echo, "over unix"))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.SequenceID != 5 || resp.ReturnValue != "over unix" {
		t.Errorf("Unexpected response %+v", resp)
	}
}
