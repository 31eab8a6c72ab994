package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aomail/backend/internal/domain"
	"aomail/backend/internal/llm"
	"aomail/backend/internal/monitoring"
)

// promauto 注册进全局注册表，整个测试二进制只创建一次指标
var testMetrics = monitoring.NewMetrics()

// histogramSamples 读取直方图的累计观测次数
func histogramSamples(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestIngestRecordsSuccessMetrics(t *testing.T) {
	f := newIngestFixture(t)
	f.ingest.SetMetrics(testMetrics)

	total := testutil.ToFloat64(testMetrics.IngestTotal.WithLabelValues("google", "success"))
	fetches := testutil.ToFloat64(testMetrics.ProviderFetchTotal.WithLabelValues("google", "success"))
	priorities := testutil.ToFloat64(testMetrics.ClassifyPriority.WithLabelValues("important"))
	durations := histogramSamples(t, testMetrics.IngestDuration)

	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))

	assert.Equal(t, total+1, testutil.ToFloat64(testMetrics.IngestTotal.WithLabelValues("google", "success")))
	assert.Equal(t, fetches+1, testutil.ToFloat64(testMetrics.ProviderFetchTotal.WithLabelValues("google", "success")))
	assert.Equal(t, priorities+1, testutil.ToFloat64(testMetrics.ClassifyPriority.WithLabelValues("important")))
	assert.Equal(t, durations+1, histogramSamples(t, testMetrics.IngestDuration))
}

func TestIngestRecordsDedupMetric(t *testing.T) {
	f := newIngestFixture(t)
	f.ingest.SetMetrics(testMetrics)

	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))
	dedups := testutil.ToFloat64(testMetrics.IngestDedup)

	// 去重锁窗口内的重复投递计入抑制指标
	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))
	assert.Equal(t, dedups+1, testutil.ToFloat64(testMetrics.IngestDedup))
}

func TestIngestRecordsBlockedMetric(t *testing.T) {
	f := newIngestFixture(t)
	f.ingest.SetMetrics(testMetrics)

	require.NoError(t, f.store.SaveSender(&domain.Sender{
		ID:    "sender-1",
		Email: "alice@corp.test",
	}))
	require.NoError(t, f.store.SaveRule(&domain.Rule{
		ID:       "rule-1",
		UserID:   "user-1",
		SenderID: "sender-1",
		Block:    true,
	}))

	blocked := testutil.ToFloat64(testMetrics.IngestBlocked)
	require.NoError(t, f.ingest.Ingest(context.Background(), f.request()))
	assert.Equal(t, blocked+1, testutil.ToFloat64(testMetrics.IngestBlocked))
}

func TestIngestRecordsFailureMetrics(t *testing.T) {
	f := newIngestFixture(t)
	f.ingest.SetMetrics(testMetrics)
	f.classifier.err = &llm.MalformedResponseError{Reason: "invalid json"}

	failures := testutil.ToFloat64(testMetrics.ClassifyFailures.WithLabelValues("malformed"))
	retries := testutil.ToFloat64(testMetrics.IngestRetries)
	total := testutil.ToFloat64(testMetrics.IngestTotal.WithLabelValues("google", "failure"))

	require.Error(t, f.ingest.Ingest(context.Background(), f.request()))

	// 每次失败尝试都计入失败分类，首次之后的尝试计入重试
	assert.Equal(t, failures+float64(maxIngestAttempts),
		testutil.ToFloat64(testMetrics.ClassifyFailures.WithLabelValues("malformed")))
	assert.Equal(t, retries+float64(maxIngestAttempts-1), testutil.ToFloat64(testMetrics.IngestRetries))
	assert.Equal(t, total+1, testutil.ToFloat64(testMetrics.IngestTotal.WithLabelValues("google", "failure")))
}

func TestSearchRecordsFanoutDuration(t *testing.T) {
	svc, store := searchFixture(t, map[domain.EmailProvider]ProviderSearcher{
		domain.ProviderGoogle: &fakeSearcher{hits: []domain.ProviderSearchHit{
			{Provider: domain.ProviderGoogle, ProviderID: "g-1"},
		}},
	})
	svc.SetMetrics(testMetrics)
	linkAccount(t, store, "acct-g", domain.ProviderGoogle)

	samples := histogramSamples(t, testMetrics.SearchFanoutDuration)
	_, err := svc.Search(context.Background(), "user-1", domain.ProviderSearchQuery{Keywords: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, samples+1, histogramSamples(t, testMetrics.SearchFanoutDuration))
}

func TestClassifyFailureKind(t *testing.T) {
	assert.Equal(t, "malformed", classifyFailureKind(&llm.MalformedResponseError{Reason: "bad"}))
	assert.Equal(t, "transport", classifyFailureKind(context.DeadlineExceeded))
}
