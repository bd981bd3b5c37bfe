// Package cosmic stores alerts as objects in a Cosmic bucket through its REST API.
package cosmic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
)

// DefaultBaseURL is the Cosmic REST API v3 root.
const DefaultBaseURL = "https://api.cosmicjs.com/v3"

// objectType is the Cosmic object type alerts are stored under.
const objectType = "alerts"

// titleLength is how much of the message becomes the object title.
const titleLength = 40

var alertProps = strings.Join([]string{
	"id",
	"metadata.id",
	"metadata.type",
	"metadata.message",
	"metadata.timestamp",
	"metadata.fiberid",
	"metadata.fiberId",
}, ",")

// Options configures a Store.
type Options struct {
	BaseURL    string
	BucketSlug string
	ReadKey    string
	WriteKey   string
	Timeout    time.Duration
}

// Store implements the alert store on a Cosmic bucket. The bucket assigns its
// own object ids; the alert id lives in the object metadata.
type Store struct {
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// NewStore creates a Cosmic alert store.
func NewStore(opts Options, logger *slog.Logger) *Store {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Store{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// ListAlerts returns up to limit stored alerts, most recently created first.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	return s.find(ctx, limit, "-created_at")
}

// LatestAlerts returns up to limit stored alerts ordered by alert timestamp, newest first.
func (s *Store) LatestAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	return s.find(ctx, limit, "-metadata.timestamp")
}

func (s *Store) find(ctx context.Context, limit int, sort string) ([]domain.AlertRecord, error) {
	query, err := json.Marshal(map[string]string{"type": objectType})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	params := url.Values{
		"read_key": {s.opts.ReadKey},
		"query":    {string(query)},
		"props":    {alertProps},
		"limit":    {strconv.Itoa(limit)},
		"sort":     {sort},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectsURL()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list alerts request: %w", err)
	}
	defer resp.Body.Close()

	// Cosmic answers 404 when a query matches no objects.
	if resp.StatusCode == http.StatusNotFound {
		return []domain.AlertRecord{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Objects are decoded one at a time so a single malformed record does not
	// hide the rest of the bucket.
	alerts := make([]domain.AlertRecord, 0, len(lr.Objects))
	for i, raw := range lr.Objects {
		var obj storedObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			s.logger.Warn("skipping undecodable stored alert", "index", i, "error", err)
			continue
		}
		alert, ok := obj.toDomain()
		if !ok {
			s.logger.Warn("skipping stored alert without id", "object_id", obj.ID)
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// InsertAlert creates one alert object.
func (s *Store) InsertAlert(ctx context.Context, alert domain.AlertRecord) error {
	body, err := json.Marshal(insertRequest{
		Title:    title(alert.Message),
		Type:     objectType,
		Metadata: fromDomain(alert),
	})
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", alert.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectsURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.opts.WriteKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("insert alert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apiError(resp)
	}

	s.logger.Debug("alert saved", "alert_id", alert.ID)
	return nil
}

func (s *Store) objectsURL() string {
	return fmt.Sprintf("%s/buckets/%s/objects", s.opts.BaseURL, url.PathEscape(s.opts.BucketSlug))
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("cosmic API error: status %d: %s", resp.StatusCode, body)
}

// title truncates a message to titleLength characters.
func title(message string) string {
	r := []rune(message)
	if len(r) > titleLength {
		r = r[:titleLength]
	}
	return string(r)
}

// Cosmic API types.

type listResponse struct {
	Objects []json.RawMessage `json:"objects"`
	Total   int               `json:"total"`
}

// storedObject is one object as read back from the bucket. Metadata is kept
// loosely typed because objects edited by hand in the dashboard do not always
// follow the shape this service writes.
type storedObject struct {
	ID       any            `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

// toDomain converts the metadata of a stored object. It reports false when
// the object carries no alert id. Both the "fiberid" and "fiberId"
// spellings are read.
func (o storedObject) toDomain() (domain.AlertRecord, bool) {
	id := text(o.Metadata["id"])
	if id == "" {
		return domain.AlertRecord{}, false
	}
	fiber := text(o.Metadata["fiberid"])
	if fiber == "" {
		fiber = text(o.Metadata["fiberId"])
	}
	return domain.AlertRecord{
		ID:        id,
		Type:      text(o.Metadata["type"]),
		Message:   text(o.Metadata["message"]),
		Timestamp: timestamp(o.Metadata["timestamp"]),
		FiberID:   fiber,
	}, true
}

// text renders a scalar metadata value as a string. Other values are empty.
func text(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// timestamp accepts the ISO form this service writes or a number of epoch
// milliseconds. Anything else decodes as the epoch.
func timestamp(v any) time.Time {
	switch v := v.(type) {
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	case string:
		return domain.ParseTimestamp(v)
	default:
		return domain.ParseTimestamp("")
	}
}

// metadata is the alert payload written on each object.
type metadata struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	FiberID   string `json:"fiberid"`
}

func fromDomain(a domain.AlertRecord) metadata {
	return metadata{
		ID:        a.ID,
		Type:      a.Type,
		Message:   a.Message,
		Timestamp: domain.FormatTimestamp(a.Timestamp),
		FiberID:   a.FiberID,
	}
}

type insertRequest struct {
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Metadata metadata `json:"metadata"`
}
