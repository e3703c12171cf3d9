package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/venue-outreach/internal/progress"
)

// wsConn is a progress.Connection over a websocket. Writes are serialized.
type wsConn struct {
	id           string
	conn         net.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newWSConn(conn net.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{id: uuid.NewString(), conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) ID() string { return c.id }

// Send writes msg as one text frame.
func (c *wsConn) Send(ctx context.Context, msg progress.Message) error {
	data, err := progress.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return wsutil.WriteServerMessage(c.conn, ws.OpText, data)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	raw, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := newWSConn(raw, s.cfg.WriteTimeout)
	logger := s.logger.With(zap.String("conn_id", conn.ID()))
	ctx := r.Context()

	s.socketsMu.Lock()
	s.sockets[conn.ID()] = conn
	s.socketsMu.Unlock()
	if s.deps.Registry != nil {
		s.deps.Registry.Subscribe(conn)
	}
	defer func() {
		if s.deps.Registry != nil {
			s.deps.Registry.Unsubscribe(conn.ID())
		}
		s.socketsMu.Lock()
		delete(s.sockets, conn.ID())
		s.socketsMu.Unlock()
		_ = conn.Close()
		logger.Debug("websocket closed")
	}()

	logger.Debug("websocket opened")
	s.greet(ctx, conn, logger)

	for {
		data, op, err := wsutil.ReadClientData(raw)
		if err != nil {
			var closed wsutil.ClosedError
			if !errors.As(err, &closed) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		if op != ws.OpText {
			continue
		}
		s.handleSocketMessage(ctx, conn, data, logger)
	}
}

// greet sends the lookup tables, the summary and every known job.
func (s *Server) greet(ctx context.Context, conn *wsConn, logger *zap.Logger) {
	msgs := []progress.Message{
		progress.SupportedLocalesMessage{Locales: s.cfg.Locales},
		progress.SupportedCountriesMessage{Countries: s.cfg.Countries},
	}
	if sum, err := s.deps.Places.Summary(ctx); err != nil {
		logger.Warn("summary failed", zap.Error(err))
	} else {
		msgs = append(msgs, progress.SummaryMessage{Summary: sum})
	}
	if jobs, err := s.deps.Jobs.FindAll(ctx); err != nil {
		logger.Warn("list jobs failed", zap.Error(err))
	} else {
		for _, j := range jobs {
			msgs = append(msgs, progress.NewJobMessage(j))
		}
	}
	for _, msg := range msgs {
		if err := conn.Send(ctx, msg); err != nil {
			logger.Debug("greeting send failed", zap.String("type", msg.Type()), zap.Error(err))
			return
		}
	}
}

func (s *Server) handleSocketMessage(ctx context.Context, conn *wsConn, data []byte, logger *zap.Logger) {
	msg, err := progress.Decode(data)
	if err != nil {
		s.reply(ctx, conn, progress.ErrorMessage{Error: err.Error()}, logger)
		return
	}
	switch m := msg.(type) {
	case progress.SearchMessage:
		job, err := s.deps.Submit.Submit(ctx, m.Query(), conn)
		// a created job already reported its failure as jobFailed
		if err != nil && job.ID == "" {
			s.reply(ctx, conn, progress.ErrorMessage{Request: progress.TypeSearch, Error: err.Error()}, logger)
		}
	case progress.ContactPlaceMessage:
		if _, err := s.deps.Contact.Contact(ctx, m.Place); err != nil {
			logger.Info("contact rejected", zap.String("place_id", m.Place.PlaceID), zap.Error(err))
			s.reply(ctx, conn, progress.ErrorMessage{Request: progress.TypeContactPlace, Error: err.Error()}, logger)
		}
		s.replySummary(ctx, conn, logger)
	case progress.SummaryMessage:
		s.replySummary(ctx, conn, logger)
	default:
		s.reply(ctx, conn, progress.ErrorMessage{Request: msg.Type(), Error: "unsupported request"}, logger)
	}
}

func (s *Server) replySummary(ctx context.Context, conn *wsConn, logger *zap.Logger) {
	sum, err := s.deps.Places.Summary(ctx)
	if err != nil {
		s.reply(ctx, conn, progress.ErrorMessage{Request: progress.TypeSummary, Error: err.Error()}, logger)
		return
	}
	s.reply(ctx, conn, progress.SummaryMessage{Summary: sum}, logger)
}

func (s *Server) reply(ctx context.Context, conn *wsConn, msg progress.Message, logger *zap.Logger) {
	if err := conn.Send(ctx, msg); err != nil {
		logger.Debug("reply failed", zap.String("type", msg.Type()), zap.Error(err))
	}
}
