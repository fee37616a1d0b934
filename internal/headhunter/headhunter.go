// Package headhunter is a small client for the hh.ru API: vacancy search,
// vacancy details, resumes and the negotiation history.
package headhunter

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/hh-matcher/internal/utils"
)

const (
	apiURL      = "https://api.hh.ru"
	mineResumID = "mine"
	userAgent   = "spigell/hh-matcher (spigelly@gmail.com)"
	// Max value for search per page.
	perPage = "100"

	defaultRequestsPerSecond = 5
	defaultMaxRetries        = 3
)

type Client struct {
	token      string
	logger     *zap.Logger
	limiter    *rate.Limiter
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// MaxRetries is the number of extra attempts for 429 and 5xx responses.
	MaxRetries int
	// Backoff returns the pause before retry attempt n, starting at 1.
	Backoff func(attempt int) time.Duration
}

func New(token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		UserAgent:  userAgent,
		MaxRetries: defaultMaxRetries,
		Backoff:    exponentialBackoff,
	}
}

// SetRateLimit sets the request rate. Zero or negative removes the limit.
func (c *Client) SetRateLimit(perSecond float64) {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
}

func exponentialBackoff(attempt int) time.Duration {
	return utils.Backoff(500*time.Millisecond, attempt)
}
