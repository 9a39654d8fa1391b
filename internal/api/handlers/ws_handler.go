package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/voxdesk/voxdesk/internal/audio"
	"github.com/voxdesk/voxdesk/internal/pipeline"
	"github.com/voxdesk/voxdesk/internal/vad"
)

// WSOptions sizes the per-connection session state.
type WSOptions struct {
	MaxBufferBytes int
	RetentionBytes int
	VADThreshold   float64
	VADTail        time.Duration
}

// WSHandler owns the realtime audio endpoint. Each connection gets its own
// session (buffer, VAD, state machine); the coordinator and everything behind
// it is shared.
type WSHandler struct {
	coord    *pipeline.Coordinator
	opts     WSOptions
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

func NewWSHandler(coord *pipeline.Coordinator, opts WSOptions, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		coord: coord,
		opts:  opts,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsControlMsg struct {
	Type string `json:"type"` // "reset" | "end"
}

type statusEvent struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type transcriptEvent struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type audioResponseEvent struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Audio       []byte `json:"audio,omitempty"` // base64 on the wire
	AudioFormat string `json:"audio_format,omitempty"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// wsSink delivers pipeline output on the connection.
type wsSink struct {
	wc *wsConn
}

func (s *wsSink) Emit(_ context.Context, res *pipeline.Response) error {
	return classifyWriteErr(s.wc.writeJSON(audioResponseEvent{
		Type:        "audio_response",
		Text:        res.Text,
		Audio:       res.Audio,
		AudioFormat: res.Format,
	}))
}

func (s *wsSink) EmitTranscript(_ context.Context, text string, final bool) error {
	return classifyWriteErr(s.wc.writeJSON(transcriptEvent{Type: "transcript", Text: text, Final: final}))
}

// classifyWriteErr tags client-gone failures so the dispatcher can tell them
// apart from faults on a live connection.
func classifyWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, net.ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) ||
		websocket.IsUnexpectedCloseError(err) {
		return fmt.Errorf("%w: %v", pipeline.ErrConnClosed, err)
	}
	return err
}

// AudioWS upgrades the connection and runs the read loop. Binary frames are
// raw 16 kHz mono s16le PCM; text frames are control messages.
func (h *WSHandler) AudioWS(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	buf := audio.NewBuffer(h.opts.MaxBufferBytes, h.opts.RetentionBytes)
	engine := vad.NewEnergyEngine(h.opts.VADThreshold, h.opts.VADTail)
	sess := pipeline.NewSession(buf, engine, &wsSink{wc: wc}, h.log)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	// invalidate any run still in flight when the connection goes away
	defer sess.Reset()

	h.log.WithField("session_id", sess.ID).Info("audio session opened")
	_ = wc.writeJSON(statusEvent{Type: "status", Status: "ready", Message: "session " + sess.ID})

	// a single frame larger than the whole session buffer is never legitimate
	conn.SetReadLimit(int64(h.opts.MaxBufferBytes))
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		mt, data, rerr := conn.ReadMessage()
		if rerr != nil {
			h.log.WithFields(logrus.Fields{
				"session_id": sess.ID,
				"chunks":     sess.TotalChunks(),
			}).Info("audio session closed")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch mt {
		case websocket.BinaryMessage:
			h.coord.Feed(ctx, sess, data)

		case websocket.TextMessage:
			var msg wsControlMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(errorEvent{Type: "error", Code: "INVALID_ARGUMENT", Message: "invalid json"})
				continue
			}
			switch msg.Type {
			case "reset":
				sess.Reset()
				_ = wc.writeJSON(statusEvent{Type: "status", Status: "ready", Message: "session reset"})
			case "end":
				_ = wc.writeJSON(statusEvent{Type: "status", Status: "ended", Message: "session ended"})
				return
			default:
				_ = wc.writeJSON(errorEvent{Type: "error", Code: "INVALID_ARGUMENT", Message: "unknown message type"})
			}
		}
	}
}
