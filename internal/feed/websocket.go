package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"altbot/internal/domain"
	"altbot/internal/infra"
	"altbot/pkg/quant"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	readTimeout      = 60 * time.Second
	handshakeTimeout = 10 * time.Second
)

// wireTick is one trade frame: {"s":<symbol id>,"p":"<decimal price>","t":<unix ms>}.
type wireTick struct {
	S uint32 `json:"s"`
	P string `json:"p" validate:"required,numeric"`
	T uint64 `json:"t" validate:"required"`
}

type frame struct {
	tick domain.RawTick
	err  error
}

// WebSocket streams ticks from a websocket endpoint into a bounded buffer.
// The connection loop reconnects with exponential backoff until the server
// rejects the handshake outright; a full buffer drops the newest frame and
// counts it.
type WebSocket struct {
	url      string
	metrics  *infra.Metrics
	backoff  infra.Backoff
	validate *validator.Validate

	ch      chan frame
	offset  uint64 // frames seen, connection loop only
	dropped atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	err    error // set before ch closes

	ReadTimeout time.Duration
}

// NewWebSocket creates a source; call Start to connect. metrics may be nil.
func NewWebSocket(url string, buffer int, metrics *infra.Metrics) *WebSocket {
	if buffer <= 0 {
		buffer = 1
	}
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &WebSocket{
		url:         url,
		metrics:     metrics,
		backoff:     infra.Backoff{Base: time.Second, Max: time.Minute},
		validate:    validator.New(),
		ch:          make(chan frame, buffer),
		ReadTimeout: readTimeout,
	}
}

// WithBackoff overrides the reconnect schedule.
func (w *WebSocket) WithBackoff(b infra.Backoff) *WebSocket {
	w.backoff = b
	return w
}

// Start initiates the connection loop. The stream ends when ctx is cancelled.
func (w *WebSocket) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
}

// Stop terminates the connection loop and ends the stream.
func (w *WebSocket) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// DecodeNext blocks until a frame arrives or the stream ends.
func (w *WebSocket) DecodeNext() (domain.RawTick, error) {
	f, ok := <-w.ch
	if !ok {
		return domain.RawTick{}, io.EOF
	}
	return f.tick, f.err
}

// Err returns the non-retriable error that ended the stream, if any. It is
// meaningful once DecodeNext has returned io.EOF or Stop has returned.
func (w *WebSocket) Err() error { return w.err }

// Dropped returns the number of frames lost to a full buffer.
func (w *WebSocket) Dropped() uint64 { return w.dropped.Load() }

func (w *WebSocket) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.ch)

	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := w.connect(ctx)
		if err != nil && !domain.IsRetriable(err) {
			slog.Error("Tick stream connection rejected", slog.Any("error", err))
			w.err = err
			return
		}
		if err != nil {
			slog.Warn("Tick stream connection failed", slog.Any("error", err), slog.Int("retry", retry))
			delay := w.backoff.Delay(retry)
			retry++
			w.metrics.RecordReconnect()
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0 // Reset on successful connect
		w.readLoop(ctx, conn)
	}
}

func (w *WebSocket) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, w.url, make(http.Header))
	if err != nil {
		// A 4xx handshake (bad path, auth) will not fix itself; 429 is throttling.
		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, domain.NewFatalNetworkError("handshake",
				fmt.Errorf("%w: status %d: %v", domain.ErrConnectionFailed, resp.StatusCode, err))
		}
		return nil, domain.NewNetworkError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}
	slog.Info("Tick stream connected", slog.String("url", w.url))
	return conn, nil
}

func (w *WebSocket) readLoop(ctx context.Context, conn *websocket.Conn) {
	w.metrics.IncrementConnections()
	defer w.metrics.DecrementConnections()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("Tick stream read error", slog.Any("error", err))
			}
			return
		}
		w.handleMessage(msg)
	}
}

func (w *WebSocket) handleMessage(msg []byte) {
	w.offset++
	f := frame{}
	t, err := w.decode(msg)
	if err != nil {
		f.err = &domain.DecodeError{Offset: w.offset, Err: err}
	} else {
		f.tick = t
	}

	select {
	case w.ch <- f:
	default: // DROP
		w.dropped.Add(1)
		w.metrics.RecordFeedDrop()
	}
}

func (w *WebSocket) decode(msg []byte) (domain.RawTick, error) {
	var wt wireTick
	if err := json.Unmarshal(msg, &wt); err != nil {
		return domain.RawTick{}, err
	}
	if err := w.validate.Struct(&wt); err != nil {
		return domain.RawTick{}, err
	}
	px, err := quant.ParsePriceE8(wt.P)
	if err != nil {
		return domain.RawTick{}, err
	}
	return domain.NewRawTick(wt.S, px, quant.TsMillis(wt.T)), nil
}
