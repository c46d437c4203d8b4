// Package loki pushes auth events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"asr-auth/internal/telemetry/domain"

	"github.com/pkg/errors"
)

const pushPath = "/loki/api/v1/push"

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is one label set with its [timestamp_ns, line] entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// Client pushes batches of events to one Loki instance.
type Client struct {
	pushURL string
	job     string
	http    *http.Client
}

// NewClient returns a client for the Loki at baseURL (e.g. http://localhost:3100). Every stream
// carries job as its job label.
func NewClient(baseURL, job string) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "loki: parse base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("loki: base URL %q needs a scheme and host", baseURL)
	}
	return &Client{
		pushURL: strings.TrimSuffix(u.String(), "/") + pushPath,
		job:     job,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Push sends the raw event JSON values (Kafka message values) in one request. Events sharing
// event type, source and code land in the same stream. The username stays in the line only.
// Values that are not event JSON are pushed as-is under the job label at the current time.
func (c *Client) Push(ctx context.Context, raws ...[]byte) error {
	if len(raws) == 0 {
		return nil
	}
	body, err := json.Marshal(c.batch(raws, time.Now().UTC()))
	if err != nil {
		return errors.Wrap(err, "loki: encode push")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pushURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "loki: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "loki: push")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}

type entry struct {
	at   time.Time
	line string
}

func (c *Client) batch(raws [][]byte, now time.Time) PushRequest {
	type group struct {
		labels  map[string]string
		entries []entry
	}
	groups := map[string]*group{}
	var keys []string
	for _, raw := range raws {
		labels := map[string]string{"job": c.job}
		at := now
		var ev domain.AuthEvent
		if err := json.Unmarshal(raw, &ev); err == nil {
			addLabel(labels, "event_type", ev.EventType)
			addLabel(labels, "source", ev.Source)
			addLabel(labels, "code", ev.Code)
			if !ev.CreatedAt.IsZero() {
				at = ev.CreatedAt
			}
		}
		key := labelKey(labels)
		g, ok := groups[key]
		if !ok {
			g = &group{labels: labels}
			groups[key] = g
			keys = append(keys, key)
		}
		g.entries = append(g.entries, entry{at: at, line: string(raw)})
	}

	req := PushRequest{Streams: make([]Stream, 0, len(keys))}
	for _, key := range keys {
		g := groups[key]
		// Loki rejects out-of-order entries within a stream.
		sort.SliceStable(g.entries, func(i, j int) bool { return g.entries[i].at.Before(g.entries[j].at) })
		values := make([][]string, 0, len(g.entries))
		for _, e := range g.entries {
			values = append(values, []string{strconv.FormatInt(e.at.UnixNano(), 10), e.line})
		}
		req.Streams = append(req.Streams, Stream{Stream: g.labels, Values: values})
	}
	return req
}

func addLabel(labels map[string]string, name, value string) {
	if v := labelSanitize.ReplaceAllString(strings.TrimSpace(value), "_"); v != "" {
		labels[name] = v
	}
}

func labelKey(labels map[string]string) string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, k := range names {
		fmt.Fprintf(&b, "%s=%q,", k, labels[k])
	}
	return b.String()
}
