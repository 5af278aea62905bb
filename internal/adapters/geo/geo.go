// Package geo resolves visitor ip addresses to coarse locations.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/pkg/logger"
	"github.com/okian/footprint/pkg/metrics"
	"github.com/okian/footprint/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Defaults for the ipinfo client.
const (
	DefaultBaseURL = "https://ipinfo.io"
	DefaultTimeout = 3 * time.Second
	maxBodyBytes   = 64 << 10
)

// Locator looks up where an ip address is.
type Locator interface {
	// Lookup resolves ip. An empty ip asks the provider to resolve the caller.
	Lookup(ctx context.Context, ip string) (model.Location, error)
}

// ipinfoResponse is the subset of the provider payload we keep.
type ipinfoResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// IPInfo queries an ipinfo-compatible JSON endpoint.
type IPInfo struct {
	baseURL string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  logger.Logger
}

// NewIPInfo creates a locator for baseURL.
func NewIPInfo(opts ...Option) *IPInfo {
	l := &IPInfo{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		client:  &http.Client{},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.baseURL = strings.TrimRight(l.baseURL, "/")
	return l
}

// Lookup performs one GET against the provider. There is no retry.
// Private and loopback addresses fail with ErrNotRoutable without a request.
func (l *IPInfo) Lookup(ctx context.Context, ip string) (model.Location, error) {
	ip = strings.TrimSpace(ip)
	if ip != "" && !Public(ip) {
		metrics.RecordGeoLookup("skipped", 0)
		return model.Location{}, ErrNotRoutable
	}

	ctx, span := tracing.Tracer().Start(ctx, "geo.Lookup")
	defer span.End()

	start := time.Now()
	loc, err := l.lookup(ctx, ip)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordGeoLookup("error", latency)
		l.logger.Debug(ctx, "geolocation lookup failed", logger.String("ip", ip), logger.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Location{}, err
	}
	metrics.RecordGeoLookup("ok", latency)
	span.SetAttributes(attribute.String("geo.country", loc.Country))
	return loc, nil
}

func (l *IPInfo) lookup(ctx context.Context, ip string) (model.Location, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint(ip), nil)
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return model.Location{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return model.Location{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body ipinfoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return model.Location{}, fmt.Errorf("%w: decode: %w", ErrLookupFailed, err)
	}
	if body.IP == "" && body.Country == "" {
		return model.Location{}, fmt.Errorf("%w: empty response", ErrLookupFailed)
	}
	return model.Location{
		IP:      body.IP,
		Country: body.Country,
		City:    body.City,
		Region:  body.Region,
	}, nil
}

// endpoint builds {base}/{ip}/json, or {base}/json for an unknown ip.
func (l *IPInfo) endpoint(ip string) string {
	if ip == "" {
		return l.baseURL + "/json"
	}
	return l.baseURL + "/" + url.PathEscape(ip) + "/json"
}

// Public reports whether ip parses and is globally routable.
func Public(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast())
}

// Disabled is the locator used when geolocation is turned off.
type Disabled struct{}

// Lookup always fails with ErrDisabled.
func (Disabled) Lookup(context.Context, string) (model.Location, error) {
	metrics.RecordGeoLookup("disabled", 0)
	return model.Location{}, ErrDisabled
}
