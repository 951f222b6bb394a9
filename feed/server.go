package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Server replays rows to a single client as JSON lines, then sends EOD.
type Server struct {
	Addr     string
	Rows     []Row
	Interval time.Duration
	// StampDate rewrites the DATE column with the send time.
	StampDate bool
	Log       *logrus.Entry

	now func() time.Time
}

// ListenAndServe listens on Addr and serves one client.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("feed: listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts one connection from ln, streams to it and closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := s.logger()
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	log.WithField("addr", ln.Addr().String()).Info("waiting for client")
	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("feed: accept: %w", err)
	}
	defer conn.Close()

	stopConn := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopConn()

	log.WithField("client", conn.RemoteAddr().String()).Info("client connected")
	err = s.Stream(ctx, conn)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Stream writes every row followed by the EOD line.
func (s *Server) Stream(ctx context.Context, w io.Writer) error {
	log := s.logger()
	now := s.now
	if now == nil {
		now = time.Now
	}

	var tick <-chan time.Time
	if s.Interval > 0 {
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		tick = t.C
	}

	bw := bufio.NewWriter(w)
	for i, row := range s.Rows {
		if i > 0 && tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if s.StampDate {
			row = stamp(row, now())
		}
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("feed: encode row %d: %w", i+1, err)
		}
		b = append(b, '\n')
		if _, err := bw.Write(b); err != nil {
			return fmt.Errorf("feed: write row %d: %w", i+1, err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("feed: write row %d: %w", i+1, err)
		}
		log.WithField("row", i+1).Debug("sent")
	}

	if _, err := bw.WriteString(EODLine + "\n"); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	log.WithField("rows", len(s.Rows)).Info("end of day sent")
	return nil
}

func (s *Server) logger() *logrus.Entry {
	if s.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return s.Log
}

// stamp returns a copy of row with every DATE column set to at.
func stamp(row Row, at time.Time) Row {
	out := make(Row, len(row))
	found := false
	for k, v := range row {
		if strings.EqualFold(strings.TrimSpace(k), "DATE") {
			v = at.Format("2006-01-02 15:04:05")
			found = true
		}
		out[k] = v
	}
	if !found {
		out["DATE"] = at.Format("2006-01-02 15:04:05")
	}
	return out
}
