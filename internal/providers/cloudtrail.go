package providers

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"

	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
)

// CloudTrailAPI is the subset of the CloudTrail client the source needs.
type CloudTrailAPI interface {
	LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
}

// CloudTrailSource reads management events from the CloudTrail LookupEvents
// API. It implements activity.Source.
type CloudTrailSource struct {
	client CloudTrailAPI
	log    *logger.Logger
}

func NewCloudTrailSource(client CloudTrailAPI, log *logger.Logger) *CloudTrailSource {
	return &CloudTrailSource{client: client, log: log.WithComponent("cloudtrail_source")}
}

// FetchSince returns events recorded after since, oldest first.
func (s *CloudTrailSource) FetchSince(ctx context.Context, since time.Time) ([]activity.Event, error) {
	var events []activity.Event
	input := &cloudtrail.LookupEventsInput{
		StartTime:  aws.Time(since),
		EndTime:    aws.Time(time.Now().UTC()),
		MaxResults: aws.Int32(50),
	}
	for {
		out, err := s.client.LookupEvents(ctx, input)
		if err != nil {
			return nil, errors.TransientFetch("cloudtrail", err)
		}
		for _, raw := range out.Events {
			ev, err := decodeTrailEvent(aws.ToString(raw.CloudTrailEvent))
			if err != nil {
				s.log.WithFields(map[string]interface{}{
					"event_id": aws.ToString(raw.EventId),
				}).WithError(err).Warn("skipping undecodable event")
				continue
			}
			if ev.ID == "" {
				ev.ID = aws.ToString(raw.EventId)
			}
			if ev.Timestamp.IsZero() && raw.EventTime != nil {
				ev.Timestamp = raw.EventTime.UTC()
			}
			if ev.Actor.UserName == "" {
				ev.Actor.UserName = aws.ToString(raw.Username)
			}
			events = append(events, ev)
		}
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	// LookupEvents returns newest first; detection wants chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// trailRecord is the raw CloudTrail record shape shared by the LookupEvents
// payload and the S3 log archive.
type trailRecord struct {
	EventID         string    `json:"eventID"`
	EventTime       time.Time `json:"eventTime"`
	EventName       string    `json:"eventName"`
	EventSource     string    `json:"eventSource"`
	AWSRegion       string    `json:"awsRegion"`
	SourceIPAddress string    `json:"sourceIPAddress"`
	UserAgent       string    `json:"userAgent"`
	ErrorCode       string    `json:"errorCode"`
	ErrorMessage    string    `json:"errorMessage"`
	ReadOnly        flexBool  `json:"readOnly"`
	UserIdentity    struct {
		Type      string `json:"type"`
		UserName  string `json:"userName"`
		ARN       string `json:"arn"`
		AccountID string `json:"accountId"`
	} `json:"userIdentity"`
	Resources []struct {
		ResourceName string `json:"resourceName"`
		ResourceType string `json:"resourceType"`
		ARN          string `json:"ARN"`
	} `json:"resources"`
}

// flexBool accepts both JSON booleans and the quoted "true"/"false" strings
// that LookupEvents emits for the readOnly field.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return err
		}
	}
	if s == "" || s == "null" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = flexBool(v)
	return nil
}

func decodeTrailEvent(raw string) (activity.Event, error) {
	var rec trailRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return activity.Event{}, err
	}
	return trailRecordToEvent(rec), nil
}

func trailRecordToEvent(rec trailRecord) activity.Event {
	ev := activity.Event{
		ID:          rec.EventID,
		Timestamp:   rec.EventTime.UTC(),
		EventName:   rec.EventName,
		EventSource: rec.EventSource,
		Region:      rec.AWSRegion,
		Actor: activity.Identity{
			UserName:  rec.UserIdentity.UserName,
			ARN:       rec.UserIdentity.ARN,
			AccountID: rec.UserIdentity.AccountID,
			Type:      rec.UserIdentity.Type,
		},
		SourceIP:     rec.SourceIPAddress,
		UserAgent:    rec.UserAgent,
		ReadOnly:     bool(rec.ReadOnly),
		ErrorCode:    rec.ErrorCode,
		ErrorMessage: rec.ErrorMessage,
	}
	for _, r := range rec.Resources {
		ev.Resources = append(ev.Resources, activity.Resource{
			Name: r.ResourceName,
			Type: r.ResourceType,
			ARN:  r.ARN,
		})
	}
	return ev
}
