package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/chainpulse/chainpulse/internal/domain"
	"github.com/chainpulse/chainpulse/pkg/retrier"
)

const (
	restMaxRetries      = 3
	restInitialInterval = 2 * time.Second
)

func newRESTClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

func newRESTRetrier() *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(restMaxRetries),
		retrier.WithInitialInterval(restInitialInterval),
		retrier.WithRetryIf(func(err error) bool {
			return errors.Is(err, domain.ErrRateLimited)
		}),
	)
}

// getJSON issues a GET, decodes the body into out and retries with
// backoff when the venue answers 429.
func getJSON(ctx context.Context, client *resty.Client, r *retrier.Retrier, path string, params map[string]string, out any) error {
	return r.Do(ctx, func(ctx context.Context) error {
		resp, err := client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(out).
			Get(path)
		if err != nil {
			return errors.Wrap(domain.ErrConnectivity, err.Error())
		}
		if resp.StatusCode() == http.StatusTooManyRequests {
			return errors.Wrapf(domain.ErrRateLimited, "GET %s returned 429", path)
		}
		if resp.IsError() {
			return errors.Wrapf(domain.ErrConnectivity, "GET %s returned status %d", path, resp.StatusCode())
		}
		return nil
	})
}
