package base

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Pending Call
// --------------------------------------------------------------------------

// CallState is the lifecycle state of a PendingCall
type CallState int32

const (
	CallPending CallState = iota
	CallResolved
	CallFailed
	CallTimedOut
)

// String returns the string representation of a CallState.
func (s CallState) String() string {
	switch s {
	case CallPending:
		return "pending"
	case CallResolved:
		return "resolved"
	case CallFailed:
		return "failed"
	case CallTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// PendingCall is an outstanding request awaiting its response. It leaves
// CallPending exactly once.
type PendingCall struct {
	seq     uint32
	started time.Time
	state   atomic.Int32
	done    chan struct{}

	// written once before done is closed
	resp *common.ResponseMessage
	err  error
}

func newPendingCall(seq uint32) *PendingCall {
	return &PendingCall{
		seq:     seq,
		started: time.Now(),
		done:    make(chan struct{}),
	}
}

// SeqID returns the sequence id the call waits for
func (p *PendingCall) SeqID() uint32 {
	return p.seq
}

// State returns the current state of the call
func (p *PendingCall) State() CallState {
	return CallState(p.state.Load())
}

// Done is closed once the call left CallPending
func (p *PendingCall) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the call is completed or ctx is done. In the latter
// case ctx.Err() is returned and the call stays registered, the caller is
// responsible for abandoning it.
func (p *PendingCall) Wait(ctx context.Context) (*common.ResponseMessage, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete moves the call out of CallPending, it reports false if that already happened
func (p *PendingCall) complete(state CallState, resp *common.ResponseMessage, err error) bool {
	if !p.state.CompareAndSwap(int32(CallPending), int32(state)) {
		return false
	}
	p.resp = resp
	p.err = err
	close(p.done)
	return true
}

// --------------------------------------------------------------------------
// Correlator
// --------------------------------------------------------------------------

// Correlator matches responses to pending calls by sequence id. Every
// connection owns one correlator, ids are therefore only unique per connection.
type Correlator struct {
	calls *xsync.MapOf[uint32, *PendingCall]
}

// NewCorrelator creates an empty correlator
func NewCorrelator() *Correlator {
	return &Correlator{
		calls: xsync.NewMapOf[uint32, *PendingCall](),
	}
}

// Register creates the pending call for seq. It fails if seq is in flight.
func (c *Correlator) Register(seq uint32) (*PendingCall, error) {
	call := newPendingCall(seq)
	if _, loaded := c.calls.LoadOrStore(seq, call); loaded {
		return nil, errors.Newf("sequence id %d is already in flight", seq)
	}
	return call, nil
}

// Resolve completes the call matching resp and removes it. Responses for
// unknown ids (late, duplicated or never requested) are logged and dropped.
func (c *Correlator) Resolve(resp *common.ResponseMessage) bool {
	call, ok := c.calls.LoadAndDelete(resp.SequenceID)
	if !ok {
		Logger.Warningf("Dropping response for unknown sequence id %d", resp.SequenceID)
		return false
	}
	Logger.Debugf("Resolved call %d after %s", call.seq, time.Since(call.started))
	return call.complete(CallResolved, resp, nil)
}

// Abandon removes the call for seq and completes it with cause. Causes
// matching common.ErrTimeout move the call to CallTimedOut, all others to
// CallFailed. It reports false if the call was already completed.
func (c *Correlator) Abandon(seq uint32, cause error) bool {
	call, ok := c.calls.LoadAndDelete(seq)
	if !ok {
		return false
	}
	state := CallFailed
	if errors.Is(cause, common.ErrTimeout) {
		state = CallTimedOut
	}
	return call.complete(state, nil, cause)
}

// FailAll completes every pending call with err and returns their number
func (c *Correlator) FailAll(err error) int {
	failed := 0
	c.calls.Range(func(seq uint32, _ *PendingCall) bool {
		if call, ok := c.calls.LoadAndDelete(seq); ok && call.complete(CallFailed, nil, err) {
			failed++
		}
		return true
	})
	return failed
}

// Len returns the number of pending calls
func (c *Correlator) Len() int {
	return c.calls.Size()
}
