package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/slot-reservation/internal/config"
)

// captureWriter records the response status and body while forwarding both
// to the client.  Bodies larger than limit are marked overflowed and are not
// cached.
type captureWriter struct {
	http.ResponseWriter
	status     int
	buf        bytes.Buffer
	limit      int
	overflowed bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflowed {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.overflowed = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// AvailabilityCache caches availability responses per store.  Each store has
// a version counter in Redis that is part of every cache key; Invalidate
// bumps it so that all cached pages of that store become unreachable at
// once and expire on their own TTL.
type AvailabilityCache struct {
	cfg    config.CacheConfig
	rdb    *redis.Client
	logger *slog.Logger
}

// NewAvailabilityCache returns a cache over rdb.  A nil client or a disabled
// config yields a cache whose middleware passes through and whose
// Invalidate does nothing.
func NewAvailabilityCache(cfg config.CacheConfig, rdb *redis.Client, logger *slog.Logger) *AvailabilityCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvailabilityCache{cfg: cfg, rdb: rdb, logger: logger.With("component", "availability_cache")}
}

func (a *AvailabilityCache) enabled() bool { return a != nil && a.cfg.Enabled && a.rdb != nil }

func (a *AvailabilityCache) versionKey(storeID string) string {
	return a.cfg.Prefix + ":ver:" + storeID
}

// Invalidate drops every cached availability page of storeID.
func (a *AvailabilityCache) Invalidate(ctx context.Context, storeID uint64) error {
	if !a.enabled() {
		return nil
	}
	return a.rdb.Incr(ctx, a.versionKey(strconv.FormatUint(storeID, 10))).Err()
}

func (a *AvailabilityCache) version(ctx context.Context, storeID string) (string, error) {
	v, err := a.rdb.Get(ctx, a.versionKey(storeID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

// pageKey derives the entry key from store, version and raw query string.
func (a *AvailabilityCache) pageKey(storeID, version, rawQuery string) string {
	sum := sha1.Sum([]byte(rawQuery))
	return fmt.Sprintf("%s:store:%s:v%s:%x", a.cfg.Prefix, storeID, version, sum[:])
}

// Middleware serves GET requests on routes carrying a :storeID parameter
// from the cache and stores successful responses.
func (a *AvailabilityCache) Middleware() echo.MiddlewareFunc {
	if !a.enabled() {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			storeID := c.Param("storeID")
			if c.Request().Method != http.MethodGet || storeID == "" {
				return next(c)
			}
			ctx := c.Request().Context()

			// The version is read before the handler runs, so a response
			// computed before a booking commits is stored under the
			// version that booking retires.
			ver, err := a.version(ctx, storeID)
			if err != nil {
				a.logger.Warn("version lookup failed", "store_id", storeID, "err", err)
				return next(c)
			}
			key := a.pageKey(storeID, ver, c.Request().URL.RawQuery)

			if bs, err := a.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: a.cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflowed {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := a.rdb.SetEx(context.WithoutCancel(ctx), key, payload, a.cfg.TTL).Err(); err != nil {
				a.logger.Warn("cache store failed", "key", key, "err", err)
			}
			return nil
		}
	}
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
