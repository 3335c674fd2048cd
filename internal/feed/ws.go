package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lotto-engine/internal/draws"
)

// Subscriber maintains a websocket subscription to live draw
// announcements, reconnecting with exponential backoff.
type Subscriber struct{ url string }

func NewSubscriber(u string) Subscriber { return Subscriber{u} }

// Stream delivers announced draws on out until the context ends. Parse and
// transport problems are reported on errs without tearing the stream down;
// send is non-blocking so a slow consumer cannot stall the read loop.
func (s Subscriber) Stream(ctx context.Context, out chan<- Announcement, errs chan<- error, ping time.Duration) error {
	wait := time.Second
	maxWait := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.streamOnce(ctx, out, errs, ping); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn().Err(err).Dur("backoff", wait).Msg("draw feed connection lost, reconnecting")
				select {
				case errs <- fmt.Errorf("feed reconnect: %w", err):
				default:
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
				wait *= 2
				if wait > maxWait {
					wait = maxWait
				}
				continue
			}
			wait = time.Second
		}
	}
}

// Announcement is one live draw-result message.
type Announcement struct {
	Type string      `json:"type"`
	Data drawPayload `json:"data"`
}

func (s Subscriber) streamOnce(ctx context.Context, out chan<- Announcement, errs chan<- error, ping time.Duration) error {
	log.Info().Str("url", s.url).Msg("connecting to draw announcement feed")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(64 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "channel": "draw_results"}); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingTicker := time.NewTicker(ping)
	defer pingTicker.Stop()

	msgs := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("draw feed closed normally")
			}
			return fmt.Errorf("read failed: %w", err)
		case msg := <-msgs:
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			ann, err := ParseAnnouncement(msg)
			if err != nil {
				log.Debug().Err(err).Str("message", string(msg)).Msg("unparseable feed message")
				select {
				case errs <- err:
				default:
				}
				continue
			}
			if ann == nil {
				continue
			}
			select {
			case out <- *ann:
			default:
				log.Warn().Int("draw", ann.Data.DrawNumber).Msg("announcement dropped, consumer not ready")
			}
		}
	}
}

// ParseAnnouncement decodes a feed message. Non-result messages
// (subscription acks, heartbeats) return nil without error.
func ParseAnnouncement(msg []byte) (*Announcement, error) {
	var ann Announcement
	if err := json.Unmarshal(msg, &ann); err != nil {
		return nil, fmt.Errorf("decode announcement: %w", err)
	}
	if ann.Type != "draw_result" {
		return nil, nil
	}
	if _, err := ann.Data.toDraw(); err != nil {
		return nil, err
	}
	return &ann, nil
}

// Draw converts the announcement payload into the domain type. Callers get
// a validated draw; ParseAnnouncement already rejected malformed payloads.
func (a Announcement) Draw() (d draws.Draw, err error) {
	return a.Data.toDraw()
}
