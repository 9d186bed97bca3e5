package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/metrics"
)

// errorBody is the API's fixed failure envelope. Success bodies are the
// raw entity or array; there is no success wrapper to unwrap.
type errorBody struct {
	Error string `json:"error"`
}

// do issues one API call. op names the operation for metrics and logs,
// body is marshalled to JSON when non-nil, out is decoded from the
// response when non-nil, and auth controls bearer-credential injection.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, auth bool) error {
	if auth {
		if err := c.requireAuth(); err != nil {
			return err
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return transportErr(err, "request canceled while throttled")
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return transportErr(err, "encode request body")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return transportErr(err, "build request")
	}

	requestID := uuid.New().String()[:8]
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.session.Token())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	metrics.APIRequestDuration.WithLabelValues(op).Observe(duration.Seconds())

	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(op, string(KindTransport)).Inc()
		c.log.Debug().Str("op", op).Str("request_id", requestID).
			Dur("duration", duration).Err(err).Msg("api call failed")
		return transportErr(err, method+" "+path)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("op", op).Str("request_id", requestID).
		Int("status", resp.StatusCode).Dur("duration", duration).Msg("api call")

	if resp.StatusCode >= 400 {
		apiErr := c.mapFailure(resp)
		metrics.APIRequestsTotal.WithLabelValues(op, string(apiErr.Kind)).Inc()
		return apiErr
	}

	metrics.APIRequestsTotal.WithLabelValues(op, "ok").Inc()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transportErr(err, "decode response for "+op)
	}
	return nil
}

// mapFailure converts a non-2xx response into the error taxonomy. A 401
// also clears the bound session so every surface forces re-authentication
// from one place.
func (c *Client) mapFailure(resp *http.Response) *Error {
	message := serverMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.session != nil {
			c.session.Clear()
		}
		return newError(KindUnauthorized, resp.StatusCode, message)
	case http.StatusForbidden:
		return newError(KindForbidden, resp.StatusCode, message)
	case http.StatusNotFound:
		return newError(KindNotFound, resp.StatusCode, message)
	case http.StatusConflict:
		return newError(KindConflict, resp.StatusCode, message)
	case http.StatusTooManyRequests:
		return newError(KindRateLimited, resp.StatusCode, message)
	default:
		if message == "" {
			message = fmt.Sprintf("server returned %s", resp.Status)
		}
		return newError(KindTransport, resp.StatusCode, message)
	}
}

// serverMessage decodes the {"error": ...} failure envelope, tolerating
// empty or non-JSON bodies.
func serverMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Error
}

// cachePut stores a fetched value unless the initiating context has been
// canceled: a response that arrives after its view is torn down must not
// overwrite state another view will read.
func (c *Client) cachePut(ctx context.Context, key string, value any) {
	if ctx.Err() != nil {
		return
	}
	blob, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, blob); err != nil {
		c.log.Debug().Str("key", key).Err(err).Msg("cache write failed")
	}
}

// cacheGet attempts to decode a cached value. A corrupt entry is treated
// as a miss and dropped.
func (c *Client) cacheGet(ctx context.Context, key string, out any) bool {
	blob, ok, err := c.cache.Get(ctx, key)
	if err != nil || !ok {
		metrics.CacheMissesTotal.WithLabelValues(keyClass(key)).Inc()
		return false
	}
	if err := json.Unmarshal(blob, out); err != nil {
		c.cache.Delete(ctx, key)
		metrics.CacheMissesTotal.WithLabelValues(keyClass(key)).Inc()
		return false
	}
	metrics.CacheHitsTotal.WithLabelValues(keyClass(key)).Inc()
	return true
}

// invalidate drops the given keys, logging rather than failing: a stale
// cache entry is recoverable, a failed write is not worth surfacing.
func (c *Client) invalidate(ctx context.Context, keys ...string) {
	metrics.CacheInvalidationsTotal.Inc()
	if err := c.cache.Delete(ctx, keys...); err != nil {
		c.log.Debug().Strs("keys", keys).Err(err).Msg("cache invalidation failed")
	}
}

// invalidatePrefix drops every key under prefix.
func (c *Client) invalidatePrefix(ctx context.Context, prefix string) {
	metrics.CacheInvalidationsTotal.Inc()
	if err := c.cache.DeletePrefix(ctx, prefix); err != nil {
		c.log.Debug().Str("prefix", prefix).Err(err).Msg("cache invalidation failed")
	}
}

// keyClass reduces a cache key to its class for metric labels, keeping
// cardinality bounded.
func keyClass(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
