package middleware

import (
	"net/http"
	"sync"

	"github.com/radiusdt/campaign-studio/internal/config"
	"github.com/radiusdt/campaign-studio/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Rate limit buckets.
const (
	BucketGeneral = "general"
	BucketUpload  = "upload"
)

// RateLimitMiddleware applies a token bucket per client. File uploads use
// a separate, tighter bucket.
type RateLimitMiddleware struct {
	cfg     config.RateLimitConfig
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimitMiddleware(cfg config.RateLimitConfig, logger *zap.Logger, m *metrics.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		bucket := BucketGeneral
		if isUploadEndpoint(r) {
			bucket = BucketUpload
		}
		client := ClientID(r)

		if !rl.limiter(bucket, client).Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("bucket", bucket),
				zap.String("path", r.URL.Path),
				zap.String("client_id", client),
			)
			rl.metrics.RecordRateLimitHit(bucket)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) limiter(bucket, client string) *rate.Limiter {
	key := bucket + "|" + client

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[key]; ok {
		return l
	}
	var l *rate.Limiter
	if bucket == BucketUpload {
		l = rate.NewLimiter(rate.Limit(rl.cfg.UploadRPS), rl.cfg.UploadBurst)
	} else {
		l = rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)
	}
	rl.limiters[key] = l
	return l
}

func isUploadEndpoint(r *http.Request) bool {
	return r.Method == http.MethodPost &&
		(r.URL.Path == "/wizard/files" || r.URL.Path == "/wizard/uploads")
}

// CleanupLimiters drops all per-client limiters. Called periodically.
func (rl *RateLimitMiddleware) CleanupLimiters() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiters = make(map[string]*rate.Limiter)
	rl.logger.Debug("cleaned up client rate limiters")
}

// Len returns the number of tracked limiters.
func (rl *RateLimitMiddleware) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
