package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/generable/api"
	"github.com/BaSui01/generable/internal/tlsutil"
)

// remoteSnapshot mirrors api.StreamSnapshot with the value left raw.
type remoteSnapshot struct {
	Seq      int             `json:"seq"`
	Complete bool            `json:"complete"`
	Done     bool            `json:"done"`
	Value    json.RawMessage `json:"value"`
	Error    string          `json:"error,omitempty"`
	Code     string          `json:"code,omitempty"`
	RecordID string          `json:"record_id,omitempty"`
}

// streamRemote sends chunks to a server's stream endpoint and prints every
// snapshot it answers with, in the same format as a local stream.
func (c *command) streamRemote(ctx context.Context, rawURL, apiKey, streamID string, chunks []string, limiter *rate.Limiter) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return c.fail(fmt.Errorf("invalid --ws URL: %w", err))
	}
	if streamID != "" {
		q := u.Query()
		q.Set("stream_id", streamID)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	if apiKey != "" {
		header.Set("X-API-Key", apiKey)
	}
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient: tlsutil.Client(0),
		HTTPHeader: header,
	})
	if err != nil {
		return c.fail(fmt.Errorf("dial %s: %w", u.Redacted(), err))
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- sendChunks(ctx, conn, chunks, limiter)
	}()

	code := exitOK
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			cancel()
			<-sendErr
			return c.fail(fmt.Errorf("stream ended: %w", err))
		}

		var snap remoteSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return c.fail(fmt.Errorf("invalid snapshot: %w", err))
		}
		switch {
		case snap.Done && snap.Error != "":
			fmt.Fprintf(c.out, "done\terror\t%s\n", snap.Error)
			code = exitViolation
		case snap.Done:
			fmt.Fprintf(c.out, "done\tok\t%s\n", snap.Value)
		case snap.Error != "":
			fmt.Fprintf(c.out, "snapshot\terror\t%s\n", snap.Error)
		default:
			fmt.Fprintf(c.out, "snapshot\t%t\t%s\n", snap.Complete, snap.Value)
		}
		if snap.RecordID != "" {
			c.logger.Info("validation recorded", zap.String("record_id", snap.RecordID))
		}
	}

	if err := <-sendErr; err != nil && !errors.Is(err, context.Canceled) {
		return c.fail(err)
	}
	return code
}

// sendChunks writes one message per chunk and a final done message.
func sendChunks(ctx context.Context, conn *websocket.Conn, chunks []string, limiter *rate.Limiter) error {
	write := func(msg api.StreamMessage) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, data)
	}
	for _, chunk := range chunks {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := write(api.StreamMessage{Chunk: chunk}); err != nil {
			return fmt.Errorf("send chunk: %w", err)
		}
	}
	if err := write(api.StreamMessage{Done: true}); err != nil {
		return fmt.Errorf("send done: %w", err)
	}
	return nil
}
