// Package feed moves ticks between the network and the pipeline: a line
// reader for the client side and a CSV replay server for the other end.
package feed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/tickledger/market"
)

// EODLine is the line that ends a stream.
const EODLine = "EOD"

// MaxLineSize bounds one message. Longer lines are logged and skipped;
// the rest of the stream is still read.
const MaxLineSize = 2 * 1024 * 1024

// ReadLines reads line-delimited messages from r and sends them to out.
// It returns after forwarding EOD. EOF without an EOD line, or a read
// error, also sends EOD; only the read error is returned. If ctx is done
// ReadLines returns ctx.Err() without sending anything else.
func ReadLines(ctx context.Context, r io.Reader, out chan<- market.Message, log *logrus.Entry) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	send := func(m market.Message) error {
		select {
		case out <- m:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	br := bufio.NewReaderSize(r, MaxLineSize)

	var lines, oversized int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			oversized++
			log.WithField("limit", MaxLineSize).Warn("skipping oversized line")
			if err = discardLine(br); err == nil {
				continue
			}
			raw = nil
		}

		if line := bytes.TrimSpace(raw); len(line) > 0 {
			if string(line) == EODLine {
				log.WithField("lines", lines).Info("end of day received")
				return send(market.EndOfDay())
			}

			// raw points into the reader's buffer.
			payload := make([]byte, len(line))
			copy(payload, line)
			if serr := send(market.NewData(payload)); serr != nil {
				return serr
			}
			lines++
		}

		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		fields := logrus.Fields{"lines": lines, "oversized": oversized}
		if errors.Is(err, io.EOF) {
			log.WithFields(fields).Warn("feed closed without EOD, ending day")
			return send(market.EndOfDay())
		}
		log.WithError(err).WithFields(fields).Warn("feed read failed, ending day")
		if sendErr := send(market.EndOfDay()); sendErr != nil {
			return sendErr
		}
		return fmt.Errorf("feed: read: %w", err)
	}
}

// discardLine drops the rest of the current line, up to and including the
// newline.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

// Dial connects to a tick server.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", addr, err)
	}
	return conn, nil
}

// TCP returns a source that dials addr and reads it with ReadLines. A
// failed dial still ends the day so the pipeline shuts down cleanly.
func TCP(addr string, log *logrus.Entry) func(context.Context, chan<- market.Message) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("addr", addr)

	return func(ctx context.Context, out chan<- market.Message) error {
		conn, err := Dial(ctx, addr)
		if err != nil {
			log.WithError(err).Error("cannot reach tick server")
			select {
			case out <- market.EndOfDay():
			case <-ctx.Done():
			}
			return err
		}
		defer conn.Close()
		log.Info("connected")

		// Unblock the reader when ctx ends.
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		return ReadLines(ctx, conn, out, log)
	}
}

// Reader returns a source that reads r, for files and stdin.
func Reader(r io.Reader, log *logrus.Entry) func(context.Context, chan<- market.Message) error {
	return func(ctx context.Context, out chan<- market.Message) error {
		return ReadLines(ctx, r, out, log)
	}
}
