// Package provider 封装 Gmail 与 Microsoft Graph 的消息拉取和搜索客户端。
package provider

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// 服务商 API 的重试参数
const (
	maxAPIAttempts = 4
	baseBackoff    = 500 * time.Millisecond
	maxBackoff     = 8 * time.Second
)

// apiCaller 带限流与退避重试的 HTTP 执行器。
type apiCaller struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// newAPICaller 创建执行器，qps 为对单服务商 API 的请求速率上限
func newAPICaller(timeout time.Duration, qps float64) *apiCaller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if qps <= 0 {
		qps = 10
	}
	return &apiCaller{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(qps), int(qps)),
	}
}

// do 执行请求，对 429 与 5xx 指数退避重试。
// buildReq 每次重试重建请求，避免 Body 已被消费。
func (c *apiCaller) do(ctx context.Context, buildReq func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < maxAPIAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := buildReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			resp.Body.Close()
			lastErr = fmt.Errorf("provider api status %d: %s", resp.StatusCode, snippet)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("provider api call failed after %d attempts: %w", maxAPIAttempts, lastErr)
}

// sleepBackoff 按尝试次数指数退避，带随机抖动
func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := baseBackoff << (attempt - 1)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	// 抖动打散重试风暴
	backoff += time.Duration(rand.Int63n(int64(backoff) / 2))

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
