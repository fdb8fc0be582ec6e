// Package transmission hands outbound transaction content to the trading partner channel.
package transmission

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gocloud.dev/blob"

	"github.com/allisson/edibox/internal/content"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// Config holds transmitter retry configuration.
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var unsafePartnerChars = regexp.MustCompile(`[^a-z0-9]+`)

// BlobTransmitter stages outbound content in a bucket (file://, s3://, gs://, mem://) that the
// partner delivery channel picks up from. Writes are retried with exponential backoff until
// they succeed, the retry budget is spent or ctx is done.
type BlobTransmitter struct {
	bucket *blob.Bucket
	config Config
	logger *slog.Logger
}

// NewBlobTransmitter creates a transmitter on an already opened bucket.
func NewBlobTransmitter(bucket *blob.Bucket, config Config, logger *slog.Logger) *BlobTransmitter {
	if config.InitialInterval <= 0 {
		config.InitialInterval = 200 * time.Millisecond
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = 5 * time.Second
	}
	return &BlobTransmitter{bucket: bucket, config: config, logger: logger}
}

// Open opens the staging bucket at url.
func Open(ctx context.Context, url string, config Config, logger *slog.Logger) (*BlobTransmitter, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open outbound staging bucket: %w", err)
	}
	return NewBlobTransmitter(bucket, config, logger), nil
}

// Close releases the staging bucket.
func (b *BlobTransmitter) Close() error {
	return b.bucket.Close()
}

// StagingKey returns <partner>/<content file name> for t.
func StagingKey(t *transactionDomain.Transaction) string {
	partner := unsafePartnerChars.ReplaceAllString(strings.ToLower(t.PartnerName), "-")
	partner = strings.Trim(partner, "-")
	if partner == "" {
		partner = "unknown"
	}
	return partner + "/" + path.Base(t.ContentPath)
}

// Transmit writes data to the staging key and returns a receipt of the form <key>@<sha256>.
func (b *BlobTransmitter) Transmit(ctx context.Context, t *transactionDomain.Transaction, data []byte) (string, error) {
	key := StagingKey(t)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = b.config.InitialInterval
	policy.MaxInterval = b.config.MaxInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		return b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
			Metadata: map[string]string{
				"transaction_id":  t.ID.String(),
				"document_type":   t.DocumentType,
				"document_number": t.DocumentNumber,
			},
		})
	}
	notify := func(err error, wait time.Duration) {
		if b.logger != nil {
			b.logger.WarnContext(ctx, "transmission attempt failed",
				slog.String("transaction_id", t.ID.String()),
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", wait),
				slog.Any("error", err),
			)
		}
	}

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, b.config.MaxRetries), ctx),
		notify,
	)
	if err != nil {
		return "", fmt.Errorf("failed to stage %s after %d attempts: %w", key, attempt, err)
	}

	return key + "@" + content.HashBytes(data), nil
}
