package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/caffeineduck/royal/hostfunc"
)

// Host calls travel over the guest's stderr as framed JSON,
//
//	\x00ROYAL:{"fn":"console_log","args":{"line":"hi"}}\x00
//
// and every frame is answered with exactly one JSON line on the guest's
// stdin. The prelude blocks on that line, so at most one call is pending.
var (
	frameStart = []byte("\x00ROYAL:")
	frameEnd   = []byte{0}
)

// maxFrameBytes bounds how much of an unterminated frame is buffered.
const maxFrameBytes = 1 << 20

type hostCall struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args"`
}

type hostReply struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// bridge is the guest's stderr. Frames are dispatched to the registry; all
// other bytes are kept as diagnostics.
type bridge struct {
	ctx      context.Context
	registry *hostfunc.Registry
	replies  io.Writer

	mu      sync.Mutex
	pending []byte
	stray   bytes.Buffer
	calls   int
}

func newBridge(ctx context.Context, registry *hostfunc.Registry, replies io.Writer) *bridge {
	return &bridge{
		ctx:      ctx,
		registry: registry,
		replies:  replies,
	}
}

func (b *bridge) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, p...)
	for {
		start := bytes.Index(b.pending, frameStart)
		if start < 0 {
			// A frame marker may be split across writes.
			keep := markerTail(b.pending)
			b.stray.Write(b.pending[:len(b.pending)-keep])
			b.pending = append(b.pending[:0], b.pending[len(b.pending)-keep:]...)
			return len(p), nil
		}
		b.stray.Write(b.pending[:start])

		body := b.pending[start+len(frameStart):]
		end := bytes.Index(body, frameEnd)
		if end < 0 {
			if len(body) > maxFrameBytes {
				b.pending = b.pending[:0]
				b.reply(hostReply{Error: "call exceeds frame limit"})
				return len(p), nil
			}
			b.pending = append(b.pending[:0], b.pending[start:]...)
			return len(p), nil
		}

		b.reply(b.dispatch(body[:end]))
		b.pending = append(b.pending[:0], body[end+len(frameEnd):]...)
	}
}

// markerTail returns the length of the longest suffix of buf that is a
// proper prefix of frameStart.
func markerTail(buf []byte) int {
	for k := min(len(frameStart)-1, len(buf)); k > 0; k-- {
		if bytes.HasSuffix(buf, frameStart[:k]) {
			return k
		}
	}
	return 0
}

func (b *bridge) dispatch(frame []byte) hostReply {
	b.calls++

	var call hostCall
	if err := json.Unmarshal(frame, &call); err != nil {
		return hostReply{Error: "invalid call format"}
	}
	fn, ok := b.registry.Get(call.Fn)
	if !ok {
		return hostReply{Error: "unknown function: " + call.Fn}
	}
	data, err := fn(b.ctx, call.Args)
	if err != nil {
		return hostReply{Error: err.Error()}
	}
	return hostReply{Data: data}
}

// reply is asynchronous: the guest reads stdin only after its stderr write
// returns, so a synchronous pipe write here would deadlock.
func (b *bridge) reply(r hostReply) {
	line, err := json.Marshal(r)
	if err != nil {
		line, _ = json.Marshal(hostReply{Error: err.Error()})
	}
	go b.replies.Write(append(line, '\n'))
}

// Stderr returns guest stderr output that was not part of a frame.
func (b *bridge) Stderr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stray.String() + string(b.pending)
}

// Calls returns the number of frames dispatched.
func (b *bridge) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
