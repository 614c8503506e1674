// Package loki ships structured log entries to a Grafana Loki push
// endpoint, adapted from a standalone HTTP push client into a
// zapcore.Core so it plugs directly into internal/logging as an optional
// second sink alongside the process's stdout JSON logs.
package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Entry is one log line destined for Loki's push API.
type Entry struct {
	Timestamp time.Time
	Line      string
	Labels    map[string]string
}

// Client is a minimal Loki HTTP push client.
type Client struct {
	endpoint     string
	http         *http.Client
	staticLabels map[string]string
}

// New builds a Client; static is attached to every pushed stream (e.g.
// {"service": "ingestd"}).
func New(endpoint string, static map[string]string) *Client {
	return &Client{
		endpoint:     endpoint,
		http:         &http.Client{Timeout: 5 * time.Second},
		staticLabels: static,
	}
}

// Push groups entries by their merged label set and POSTs them to
// /loki/api/v1/push, gzip-compressed.
func (c *Client) Push(ctx context.Context, entries []Entry) error {
	type group struct {
		labels map[string]string
		values [][2]string
	}
	grouped := map[string]*group{}
	for _, e := range entries {
		labels := map[string]string{}
		for k, v := range c.staticLabels {
			labels[k] = v
		}
		for k, v := range e.Labels {
			labels[k] = v
		}
		key := labelString(labels)
		g, ok := grouped[key]
		if !ok {
			g = &group{labels: labels}
			grouped[key] = g
		}
		g.values = append(g.values, [2]string{
			strconv.FormatInt(e.Timestamp.UTC().UnixNano(), 10), e.Line,
		})
	}

	streams := make([]map[string]any, 0, len(grouped))
	for _, g := range grouped {
		streams = append(streams, map[string]any{"stream": g.labels, "values": g.values})
	}
	body := map[string]any{"streams": streams}

	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if err := json.NewEncoder(gz).Encode(body); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/loki/api/v1/push", buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned status %d", resp.StatusCode)
	}
	return nil
}

func labelString(labels map[string]string) string {
	s := "{"
	first := true
	for k, v := range labels {
		if !first {
			s += ","
		}
		first = false
		s += k + `="` + v + `"`
	}
	return s + "}"
}
