// Package relay decodes an upstream Anthropic event stream and re-emits it as
// the proxy's own relay frames.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

// State is the relay lifecycle state.
type State int

const (
	StateStreaming State = iota
	StateDone
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	eventMessageStart = "message_start"
	eventContentDelta = "content_block_delta"
	eventError        = "error"

	readBufferSize = 4096

	// MaxPendingBytes bounds a record carried over without a newline.
	MaxPendingBytes = 1 << 20
)

var (
	// ErrClientGone is returned when the outbound sink stops accepting frames.
	ErrClientGone = errors.New("client disconnected")
	// ErrRecordTooLarge is returned when an upstream record exceeds MaxPendingBytes.
	ErrRecordTooLarge = errors.New("upstream record too large")
)

// Sink receives outbound frames. An error means the client can no longer
// accept data and the relay is cancelled.
type Sink interface {
	Send(frame domain.StreamFrame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(frame domain.StreamFrame) error

// Send implements Sink.
func (f SinkFunc) Send(frame domain.StreamFrame) error { return f(frame) }

// Persister stores the assistant reply when the stream completes.
type Persister interface {
	AddMessage(ctx context.Context, id string, msg domain.Message) (*domain.Session, error)
}

// Observer is notified of relay outcomes. Implementations must be cheap.
type Observer interface {
	ObserveFrame(frameType domain.FrameType)
	ObserveStream(outcome string)
}

// Relay is the per-stream state threaded through every chunk.
type Relay struct {
	sessionID string
	state     State
	text      strings.Builder
	pending   []byte
	sawDone   bool
	upstream  error

	persister Persister
	observer  Observer
	logger    *zap.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithObserver attaches an outcome observer.
func WithObserver(o Observer) Option {
	return func(r *Relay) { r.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// New creates a relay for one session's stream.
func New(sessionID string, persister Persister, opts ...Option) *Relay {
	r := &Relay{
		sessionID: sessionID,
		state:     StateStreaming,
		persister: persister,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("session_id", sessionID))
	return r
}

// State returns the current state.
func (r *Relay) State() State { return r.state }

// Text returns the assistant text accumulated so far.
func (r *Relay) Text() string { return r.text.String() }

// ProcessChunk decodes one upstream chunk and returns the frames to emit.
// A trailing partial record is kept until the next chunk completes it.
// After the [DONE] sentinel the remaining records are ignored. A partial
// record longer than MaxPendingBytes fails the stream.
func (r *Relay) ProcessChunk(chunk []byte) []domain.StreamFrame {
	if r.sawDone || r.upstream != nil {
		return nil
	}

	data := append(r.pending, chunk...)
	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		r.pending = data
		r.checkPending()
		return nil
	}
	r.pending = append([]byte(nil), data[last+1:]...)

	frames := r.processRecords(data[:last])
	if r.upstream == nil && !r.sawDone {
		r.checkPending()
	}
	return frames
}

func (r *Relay) checkPending() {
	if len(r.pending) > MaxPendingBytes {
		r.upstream = fmt.Errorf("%w: more than %d bytes without a newline", ErrRecordTooLarge, MaxPendingBytes)
		r.pending = nil
	}
}

// flush processes a trailing record left without a newline at end of stream.
func (r *Relay) flush() []domain.StreamFrame {
	if len(r.pending) == 0 || r.sawDone || r.upstream != nil {
		return nil
	}
	data := r.pending
	r.pending = nil
	return r.processRecords(data)
}

func (r *Relay) processRecords(data []byte) []domain.StreamFrame {
	var frames []domain.StreamFrame
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == doneSentinel {
			r.sawDone = true
			return frames
		}

		frame, ok, err := r.decodeRecord(payload)
		if err != nil {
			if errors.Is(err, domain.ErrStreamDecode) {
				r.logger.Debug("failed to parse streaming data", zap.Error(err))
				continue
			}
			r.upstream = err
			return frames
		}
		if ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// decodeRecord turns one data payload into at most one frame. An upstream
// error event is returned as an error and ends the stream with an error frame.
// Other unlisted event types produce no frame.
func (r *Relay) decodeRecord(payload string) (domain.StreamFrame, bool, error) {
	if !gjson.Valid(payload) {
		return domain.StreamFrame{}, false, fmt.Errorf("%w: %q", domain.ErrStreamDecode, truncate(payload, 64))
	}

	switch gjson.Get(payload, "type").String() {
	case eventContentDelta:
		text := gjson.Get(payload, "delta.text").String()
		if text == "" {
			return domain.StreamFrame{}, false, nil
		}
		r.text.WriteString(text)
		return domain.ContentFrame(r.sessionID, text), true, nil
	case eventMessageStart:
		return domain.StartFrame(r.sessionID, gjson.Get(payload, "message.model").String()), true, nil
	case eventError:
		msg := gjson.Get(payload, "error.message").String()
		if msg == "" {
			msg = gjson.Get(payload, "error.type").String()
		}
		return domain.StreamFrame{}, false, fmt.Errorf("upstream stream error: %s", msg)
	default:
		return domain.StreamFrame{}, false, nil
	}
}

// Run drives the relay until the upstream ends, the [DONE] sentinel arrives,
// an error occurs, or the sink goes away. The upstream body is always closed.
// The accumulated reply is persisted only after a clean end.
func (r *Relay) Run(ctx context.Context, upstream io.ReadCloser, sink Sink) error {
	defer upstream.Close()

	buf := make([]byte, readBufferSize)
	for r.state == StateStreaming {
		if err := ctx.Err(); err != nil {
			return r.cancel(err)
		}

		n, readErr := upstream.Read(buf)
		if n > 0 {
			for _, frame := range r.ProcessChunk(buf[:n]) {
				if err := r.send(sink, frame); err != nil {
					return r.cancel(err)
				}
			}
			if r.upstream != nil {
				return r.fail(sink, r.upstream)
			}
			if r.sawDone {
				return r.finish(ctx, sink)
			}
		}

		if readErr == io.EOF {
			for _, frame := range r.flush() {
				if err := r.send(sink, frame); err != nil {
					return r.cancel(err)
				}
			}
			if r.upstream != nil {
				return r.fail(sink, r.upstream)
			}
			return r.finish(ctx, sink)
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return r.cancel(ctx.Err())
			}
			return r.fail(sink, fmt.Errorf("failed to read stream: %w", readErr))
		}
	}
	return nil
}

func (r *Relay) send(sink Sink, frame domain.StreamFrame) error {
	if err := sink.Send(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	if r.observer != nil {
		r.observer.ObserveFrame(frame.Type)
	}
	return nil
}

// finish emits the done frame and persists the reply exactly once. The write
// is detached from ctx so a client closing on done does not drop the reply.
func (r *Relay) finish(ctx context.Context, sink Sink) error {
	if err := r.send(sink, domain.DoneFrame(r.sessionID)); err != nil {
		return r.cancel(err)
	}
	r.state = StateDone
	r.observe("done")

	if r.text.Len() == 0 {
		return nil
	}
	_, err := r.persister.AddMessage(context.WithoutCancel(ctx), r.sessionID, domain.Message{
		Role:    domain.RoleAssistant,
		Content: domain.PlainText(r.text.String()),
	})
	if err != nil {
		r.logger.Error("failed to persist streamed reply", zap.Error(err))
		return fmt.Errorf("failed to persist streamed reply: %w", err)
	}
	return nil
}

// fail emits a single error frame and ends the stream without persisting.
func (r *Relay) fail(sink Sink, cause error) error {
	r.state = StateErrored
	r.observe("error")
	r.logger.Error("streaming error", zap.Error(cause))

	if err := r.send(sink, domain.ErrorFrame(r.sessionID, cause.Error())); err != nil {
		r.logger.Debug("failed to deliver error frame", zap.Error(err))
	}
	return cause
}

// cancel stops the relay after the client went away or the context ended.
func (r *Relay) cancel(cause error) error {
	r.state = StateErrored
	r.observe("cancelled")
	r.logger.Info("stream cancelled", zap.Error(cause))
	return cause
}

func (r *Relay) observe(outcome string) {
	if r.observer != nil {
		r.observer.ObserveStream(outcome)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
