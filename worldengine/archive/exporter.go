package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/noxhaven/world-engine/worldengine/database/repositories"
)

const exportBatchSize = 500

// Exporter ships processed audit rows to S3-compatible object storage.
// Rows stay in the database untouched; the archive is a cold copy for
// analytics. A per-log high-water mark object makes re-runs skip batches
// that already shipped.
type Exporter struct {
	client     *s3.Client
	bucket     string
	prefix     string
	districts  repositories.DistrictRepository
	reputation repositories.ReputationRepository
	log        *slog.Logger
}

func NewExporter(key, secret, region, bucket, prefix string, districts repositories.DistrictRepository, reputation repositories.ReputationRepository, log *slog.Logger) (*Exporter, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive storage config: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Exporter{
		client:     s3.NewFromConfig(cfg),
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		districts:  districts,
		reputation: reputation,
		log:        log,
	}, nil
}

// Run exports all archivable rows older than retention, in batches, for both
// audit logs.
func (e *Exporter) Run(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)

	if err := e.exportDistrictEvents(ctx, cutoff); err != nil {
		return fmt.Errorf("district events: %w", err)
	}
	if err := e.exportReputationEvents(ctx, cutoff); err != nil {
		return fmt.Errorf("reputation events: %w", err)
	}
	return nil
}

func (e *Exporter) exportDistrictEvents(ctx context.Context, cutoff time.Time) error {
	mark, err := e.loadMark(ctx, "district_events")
	if err != nil {
		return err
	}

	for {
		events, err := e.districts.ListProcessedEventsBefore(ctx, cutoff, mark, exportBatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		lastID := events[len(events)-1].ID
		key := e.batchKey("district_events", events[0].ID, lastID)
		if err := e.putJSON(ctx, key, events); err != nil {
			return err
		}
		if err := e.storeMark(ctx, "district_events", lastID); err != nil {
			return err
		}
		mark = lastID

		e.log.Info("Archived district events",
			slog.String("key", key),
			slog.Int("count", len(events)))
	}
}

func (e *Exporter) exportReputationEvents(ctx context.Context, cutoff time.Time) error {
	mark, err := e.loadMark(ctx, "reputation_events")
	if err != nil {
		return err
	}

	for {
		events, err := e.reputation.ListEventsBefore(ctx, cutoff, mark, exportBatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		lastID := events[len(events)-1].ID
		key := e.batchKey("reputation_events", events[0].ID, lastID)
		if err := e.putJSON(ctx, key, events); err != nil {
			return err
		}
		if err := e.storeMark(ctx, "reputation_events", lastID); err != nil {
			return err
		}
		mark = lastID

		e.log.Info("Archived reputation events",
			slog.String("key", key),
			slog.Int("count", len(events)))
	}
}

func (e *Exporter) batchKey(kind string, firstID, lastID int64) string {
	return fmt.Sprintf("%s/%s/%012d-%012d.json", e.prefix, kind, firstID, lastID)
}

func (e *Exporter) markKey(kind string) string {
	return fmt.Sprintf("%s/%s/.mark", e.prefix, kind)
}

func (e *Exporter) putJSON(ctx context.Context, key string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal archive batch: %w", err)
	}

	contentType := "application/json"
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &e.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (e *Exporter) loadMark(ctx context.Context, kind string) (int64, error) {
	key := e.markKey(kind)
	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &e.bucket,
		Key:    &key,
	})
	if err != nil {
		// Missing mark means nothing exported yet.
		return 0, nil
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read mark %s: %w", key, err)
	}
	mark, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt mark %s: %w", key, err)
	}
	return mark, nil
}

func (e *Exporter) storeMark(ctx context.Context, kind string, id int64) error {
	key := e.markKey(kind)
	body := strconv.FormatInt(id, 10)
	contentType := "text/plain"

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &e.bucket,
		Key:         &key,
		Body:        strings.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store mark %s: %w", key, err)
	}
	return nil
}
