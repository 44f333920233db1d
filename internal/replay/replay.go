package replay

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// ReplayMode controls whether replayed raw event rows are kept or
// deleted from the store once replay completes.
type ReplayMode string

const (
	// ReplayArchival retains raw-event rows after replay.
	ReplayArchival ReplayMode = "archival"
	// ReplayPruned deletes raw-event rows once replay completes.
	ReplayPruned ReplayMode = "pruned"
)

// Config configures one Replay invocation.
type Config struct {
	// TargetAddr is the loopback address of the ingestion core's own
	// HTTP event endpoint that replayed requests are POSTed to.
	TargetAddr string
	Mode       ReplayMode
	// Force records that the caller bypassed the non-empty-store
	// safety check; the check itself runs in cmd/replay, and Replay
	// does not read this field.
	Force bool
	// RequestsPerSecond throttles the replay POST rate so a bulk
	// replay of a large exported log does not saturate the target
	// store's connection pool.
	RequestsPerSecond int
}

// Replay reads a TSV export produced by Export and POSTs each record
// to cfg.TargetAddr at the path it was originally received on, in
// file order, throttled to cfg.RequestsPerSecond.
func Replay(ctx context.Context, r io.Reader, cfg Config, logger *zap.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024*1024)

	if !scanner.Scan() {
		return fmt.Errorf("empty replay input")
	}
	if scanner.Text() != exportHeader {
		return fmt.Errorf("unrecognized replay file header %q", scanner.Text())
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 50
	}
	limiter := ratelimit.New(rps)

	client := &http.Client{}
	count := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		seq, path, payload, err := parseRecordLine(line)
		if err != nil {
			return fmt.Errorf("parse replay record: %w", err)
		}

		limiter.Take()

		url := strings.TrimRight(cfg.TargetAddr, "/") + path
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build replay request for seq %d: %w", seq, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("replay request seq %d to %s: %w", seq, path, err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("replay request seq %d to %s returned status %d", seq, path, resp.StatusCode)
		}

		count++
		if count%1000 == 0 {
			logger.Info("replay progress", zap.Int("records", count))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan replay input: %w", err)
	}

	logger.Info("replay complete", zap.Int("records", count), zap.String("mode", string(cfg.Mode)))
	return nil
}

func parseRecordLine(line string) (seq uint64, path string, payload []byte, err error) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return 0, "", nil, fmt.Errorf("expected 3 tab-separated fields, got %d", len(parts))
	}
	seq, err = strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, "", nil, fmt.Errorf("parse seq: %w", err)
	}
	return seq, parts[1], []byte(parts[2]), nil
}
