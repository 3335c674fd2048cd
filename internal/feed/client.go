// Package feed talks to the external draw-results service: an HTTP API for
// historical results and a websocket stream for live announcements.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"lotto-engine/internal/draws"
)

// ErrDrawNotFound marks a draw number the service has no result for yet.
var ErrDrawNotFound = errors.New("draw not found")

// drawPayload is the wire shape of one draw result.
type drawPayload struct {
	DrawNumber int    `json:"draw_number"`
	DrawDate   string `json:"draw_date"`
	Numbers    []int  `json:"numbers"`
	Bonus      int    `json:"bonus_number"`
}

func (p drawPayload) toDraw() (draws.Draw, error) {
	date, err := time.Parse("2006-01-02", p.DrawDate)
	if err != nil {
		return draws.Draw{}, fmt.Errorf("draw %d: bad date %q: %w", p.DrawNumber, p.DrawDate, err)
	}
	d := draws.Draw{
		DrawNumber: p.DrawNumber,
		DrawDate:   date,
		Numbers:    p.Numbers,
		Bonus:      p.Bonus,
	}
	if err := d.Validate(); err != nil {
		return draws.Draw{}, err
	}
	return d, nil
}

// Client fetches draw results over HTTP with retries. Transient failures
// back off exponentially; a 404 is final.
type Client struct {
	base string
	rest *resty.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	return &Client{base: base, rest: r}
}

// FetchDraw retrieves one draw result by number.
func (c *Client) FetchDraw(ctx context.Context, number int) (draws.Draw, error) {
	if number <= 0 {
		return draws.Draw{}, fmt.Errorf("draw number must be positive, got %d", number)
	}
	return c.fetch(ctx, fmt.Sprintf("%s/api/v1/draws/%d", c.base, number))
}

// FetchLatest retrieves the most recent published draw result.
func (c *Client) FetchLatest(ctx context.Context) (draws.Draw, error) {
	return c.fetch(ctx, c.base+"/api/v1/draws/latest")
}

func (c *Client) fetch(ctx context.Context, url string) (draws.Draw, error) {
	var payload drawPayload
	op := func() error {
		resp, err := c.rest.R().
			SetContext(ctx).
			SetResult(&payload).
			Get(url)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return backoff.Permanent(ErrDrawNotFound)
		case resp.IsError():
			return fmt.Errorf("draw feed returned %d", resp.StatusCode())
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return draws.Draw{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	return payload.toDraw()
}

// Backfill pulls every draw after the store's newest one until the feed
// runs out of published results. Returns how many draws were ingested.
func (c *Client) Backfill(ctx context.Context, store DrawSink) (int, error) {
	latest, err := store.LatestDrawNumber()
	if err != nil {
		return 0, err
	}

	ingested := 0
	for n := latest + 1; ; n++ {
		d, err := c.FetchDraw(ctx, n)
		if errors.Is(err, ErrDrawNotFound) {
			break
		}
		if err != nil {
			return ingested, err
		}
		if err := store.PutDraw(d); err != nil {
			return ingested, err
		}
		ingested++
	}
	if ingested > 0 {
		log.Info().Int("draws", ingested).Int("from", latest+1).Msg("backfilled draw history")
	}
	return ingested, nil
}

// DrawSink is the slice of storage the backfill needs.
type DrawSink interface {
	LatestDrawNumber() (int, error)
	PutDraw(draws.Draw) error
}
