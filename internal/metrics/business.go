package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Business holds the domain-level metric instruments: upload throughput,
// quota rejections and rate-limit rejections. A nil *Business is a valid
// no-op receiver so handlers can run without a provider in tests.
type Business struct {
	uploadsFinalized metric.Int64Counter
	bytesStored      metric.Int64Counter
	quotaRejections  metric.Int64Counter
	rateRejections   metric.Int64Counter
}

// NewBusiness creates the business metric instruments on the given meter provider.
func NewBusiness(meterProvider metric.MeterProvider, namespace string) (*Business, error) {
	meter := meterProvider.Meter(namespace)

	uploadsFinalized, err := meter.Int64Counter(
		fmt.Sprintf("%s_uploads_finalized_total", namespace),
		metric.WithDescription("Total number of finalized uploads"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uploads counter: %w", err)
	}

	bytesStored, err := meter.Int64Counter(
		fmt.Sprintf("%s_bytes_stored_total", namespace),
		metric.WithDescription("Total plaintext bytes accepted at finalize"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytes counter: %w", err)
	}

	quotaRejections, err := meter.Int64Counter(
		fmt.Sprintf("%s_quota_rejections_total", namespace),
		metric.WithDescription("Total quota reservations rejected"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quota rejections counter: %w", err)
	}

	rateRejections, err := meter.Int64Counter(
		fmt.Sprintf("%s_rate_limit_rejections_total", namespace),
		metric.WithDescription("Total requests rejected by rate limiting"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate rejections counter: %w", err)
	}

	return &Business{
		uploadsFinalized: uploadsFinalized,
		bytesStored:      bytesStored,
		quotaRejections:  quotaRejections,
		rateRejections:   rateRejections,
	}, nil
}

// UploadFinalized records one finalized upload of size bytes.
func (b *Business) UploadFinalized(ctx context.Context, size int64) {
	if b == nil {
		return
	}
	b.uploadsFinalized.Add(ctx, 1)
	b.bytesStored.Add(ctx, size)
}

// QuotaRejected records one rejected quota reservation.
func (b *Business) QuotaRejected(ctx context.Context) {
	if b == nil {
		return
	}
	b.quotaRejections.Add(ctx, 1)
}

// RateLimited records one rate-limit rejection.
func (b *Business) RateLimited(ctx context.Context) {
	if b == nil {
		return
	}
	b.rateRejections.Add(ctx, 1)
}
