package github

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	logger "github.com/sirupsen/logrus"
)

const (
	retryMax     = 5
	retryWaitMin = 1 * time.Second
	retryWaitMax = 5 * time.Minute
)

// newRetryClient builds the HTTP client every API call goes through. Primary
// and secondary rate-limit responses block and retry after the interval the
// server names instead of failing the run.
func newRetryClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil
	client.CheckRetry = rateLimitRetryPolicy
	client.Backoff = rateLimitBackoff
	return client
}

// rateLimitRetryPolicy marks rate-limited responses as retryable and defers
// everything else to the default policy.
func rateLimitRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil && isRateLimited(resp) {
		return true, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// rateLimitBackoff sleeps for the server-specified interval on rate limits:
// "retry-after" for secondary limits, "x-ratelimit-reset" for primary ones.
func rateLimitBackoff(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && isRateLimited(resp) {
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil {
				return clampWait(time.Duration(secs)*time.Second, maxWait)
			}
		}
		if reset := resp.Header.Get("X-Ratelimit-Reset"); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				wait := time.Until(time.Unix(epoch, 0))
				logger.Warnf("Rate limited, waiting %s until the limit resets", wait.Round(time.Second))
				return clampWait(wait, maxWait)
			}
		}
	}
	return retryablehttp.DefaultBackoff(minWait, maxWait, attemptNum, resp)
}

func isRateLimited(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden &&
		(resp.Header.Get("Retry-After") != "" || resp.Header.Get("X-Ratelimit-Remaining") == "0")
}

func clampWait(wait, maxWait time.Duration) time.Duration {
	if wait < 0 {
		return 0
	}
	if wait > maxWait {
		return maxWait
	}
	return wait
}
