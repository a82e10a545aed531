package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/convocation/internal/model"
	"github.com/dukerupert/convocation/internal/store"
)

// MaxCalendarBytes caps fetched and uploaded calendars.
const MaxCalendarBytes = 5 << 20

// ErrFetch wraps failures retrieving a remote calendar.
var ErrFetch = errors.New("fetch calendar")

// Result summarizes an import.
type Result struct {
	Created []model.ImportantDate `json:"created"`
	Skipped int                   `json:"skipped"`
	Errors  []string              `json:"errors,omitempty"`
}

// Importer loads calendar feeds into the important dates collection.
type Importer struct {
	dates   *store.DeadlineStore
	client  *http.Client
	horizon time.Duration
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

// NewImporter creates an importer that keeps occurrences from today up to
// horizonDays ahead.
func NewImporter(dates *store.DeadlineStore, horizonDays int, loc *time.Location, logger *slog.Logger) *Importer {
	if loc == nil {
		loc = time.Local
	}
	return &Importer{
		dates:   dates,
		client:  &http.Client{Timeout: 15 * time.Second},
		horizon: time.Duration(horizonDays) * 24 * time.Hour,
		loc:     loc,
		now:     time.Now,
		logger:  logger.With("component", "ics"),
	}
}

// ImportURL downloads an http(s) calendar and imports it.
func (im *Importer) ImportURL(ctx context.Context, rawURL string) (*Result, error) {
	body, err := im.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, body)
}

func (im *Importer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be http or https", ErrFetch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetch, u.Host, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxCalendarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if len(body) > MaxCalendarBytes {
		return nil, fmt.Errorf("%w: calendar larger than %d bytes", ErrFetch, MaxCalendarBytes)
	}
	return body, nil
}

// Import parses body and stores every occurrence not already present with
// the same title and date.
func (im *Importer) Import(ctx context.Context, body []byte) (*Result, error) {
	events, skipped, err := Parse(body, im.loc)
	if err != nil {
		return nil, err
	}

	now := im.now().In(im.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, im.loc)
	entries, expandErrs := Expand(events, Window{From: from, To: from.Add(im.horizon)}, im.loc)

	res := &Result{Created: []model.ImportantDate{}, Skipped: skipped}
	for _, e := range expandErrs {
		res.Errors = append(res.Errors, e.Error())
	}

	seen := make(map[[2]string]bool)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		key := [2]string{e.Title, e.Date}
		if seen[key] {
			res.Skipped++
			continue
		}
		seen[key] = true

		exists, err := im.dates.ExistsByTitleAndDate(e.Title, e.Date)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}
		d, err := im.dates.Create(e.Title, e.Date, e.Time, e.Location)
		if err != nil {
			return res, err
		}
		res.Created = append(res.Created, *d)
	}

	im.logger.Info("calendar imported", "events", len(events), "created", len(res.Created), "skipped", res.Skipped)
	return res, nil
}
