// Package statusbus mirrors the monitor's live status into Redis so external
// observers (dashboards, the ops websocket feed) can read it without touching
// core state.
package statusbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightmind-health/chartwatch/internal/monitor"
)

const (
	statsTTL   = 10 * time.Minute
	logRingMax = 100
)

// LogEntry is one line of the recent-activity ring.
type LogEntry struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Patient string    `json:"patient,omitempty"`
}

// Publisher writes session status under the configured channel prefix and
// notifies subscribers on every update.
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = "chartwatch:status"
	}
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) statsKey() string { return p.channel + ":stats" }
func (p *Publisher) logKey() string   { return p.channel + ":log" }

// PublishStatus stores the latest stats snapshot and signals subscribers.
func (p *Publisher) PublishStatus(ctx context.Context, snap monitor.StatsSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("statusbus: marshal stats: %w", err)
	}
	if err := p.client.Set(ctx, p.statsKey(), data, statsTTL).Err(); err != nil {
		return fmt.Errorf("statusbus: store stats: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("statusbus: publish stats: %w", err)
	}
	return nil
}

// AppendLog pushes an entry onto the recent-activity ring, trimming it to the
// last logRingMax entries.
func (p *Publisher) AppendLog(ctx context.Context, level, message, patient string) error {
	entry := LogEntry{At: time.Now(), Level: level, Message: message, Patient: patient}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("statusbus: marshal log entry: %w", err)
	}
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, p.logKey(), data)
	pipe.LTrim(ctx, p.logKey(), 0, logRingMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("statusbus: append log: %w", err)
	}
	return nil
}

// Status returns the last published snapshot, or nil when none exists.
func (p *Publisher) Status(ctx context.Context) (*monitor.StatsSnapshot, error) {
	data, err := p.client.Get(ctx, p.statsKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statusbus: read stats: %w", err)
	}
	var snap monitor.StatsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("statusbus: parse stats: %w", err)
	}
	return &snap, nil
}

// RecentLogs returns up to n entries, newest first.
func (p *Publisher) RecentLogs(ctx context.Context, n int) ([]LogEntry, error) {
	if n <= 0 || n > logRingMax {
		n = logRingMax
	}
	raw, err := p.client.LRange(ctx, p.logKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("statusbus: read log ring: %w", err)
	}
	entries := make([]LogEntry, 0, len(raw))
	for _, item := range raw {
		var entry LogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
