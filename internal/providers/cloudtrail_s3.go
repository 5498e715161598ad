package providers

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
)

// S3API is the subset of the S3 client the trail archive source needs.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// TrailArchiveSource reads CloudTrail log files delivered to an S3 bucket.
// An alternative to CloudTrailSource for accounts that archive trails but
// restrict the LookupEvents API. Implements activity.Source.
type TrailArchiveSource struct {
	client S3API
	bucket string
	prefix string
	log    *logger.Logger
}

func NewTrailArchiveSource(client S3API, bucket, prefix string, log *logger.Logger) *TrailArchiveSource {
	return &TrailArchiveSource{
		client: client,
		bucket: bucket,
		prefix: prefix,
		log:    log.WithComponent("trail_archive_source"),
	}
}

// FetchSince scans log objects modified after since and returns the
// contained records newer than since, oldest first.
func (s *TrailArchiveSource) FetchSince(ctx context.Context, since time.Time) ([]activity.Event, error) {
	var events []activity.Event
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}
	for {
		out, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, errors.TransientFetch("cloudtrail_s3", err)
		}
		for _, obj := range out.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(since) {
				continue
			}
			batch, err := s.readLogObject(ctx, aws.ToString(obj.Key), since)
			if err != nil {
				s.log.WithFields(map[string]interface{}{
					"bucket": s.bucket,
					"key":    aws.ToString(obj.Key),
				}).WithError(err).Warn("skipping unreadable log object")
				continue
			}
			events = append(events, batch...)
		}
		if out.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func (s *TrailArchiveSource) readLogObject(ctx context.Context, key string, since time.Time) ([]activity.Event, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	var body io.Reader = out.Body
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(out.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	var file struct {
		Records []trailRecord `json:"Records"`
	}
	if err := json.NewDecoder(body).Decode(&file); err != nil {
		return nil, err
	}

	var events []activity.Event
	for _, rec := range file.Records {
		if !rec.EventTime.After(since) {
			continue
		}
		events = append(events, trailRecordToEvent(rec))
	}
	return events, nil
}
