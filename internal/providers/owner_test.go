package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/awstrack/awstrack/internal/pkg/logger"
)

type fakeTagsAPI struct {
	tags  map[string][]ec2types.TagDescription
	err   error
	calls int
}

func (f *fakeTagsAPI) DescribeTags(_ context.Context, params *ec2.DescribeTagsInput, _ ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	id := params.Filters[0].Values[0]
	return &ec2.DescribeTagsOutput{Tags: f.tags[id]}, nil
}

func tag(key, value string) ec2types.TagDescription {
	return ec2types.TagDescription{Key: aws.String(key), Value: aws.String(value)}
}

func testLog() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func TestTagOwnerResolver_ResolveOwner(t *testing.T) {
	api := &fakeTagsAPI{tags: map[string][]ec2types.TagDescription{
		"i-owned":    {tag("Name", "web-1"), tag("Owner", "alice")},
		"i-creator":  {tag("created-by", "bob")},
		"i-both":     {tag("CreatedBy", "ci"), tag("Owner", "carol")},
		"i-untagged": {tag("Name", "scratch")},
	}}
	r := NewTagOwnerResolver(api, testLog())

	tests := []struct {
		name       string
		resourceID string
		want       string
	}{
		{"owner tag", "i-owned", "alice"},
		{"created-by fallback", "i-creator", "bob"},
		{"owner takes precedence", "i-both", "carol"},
		{"no ownership tags", "i-untagged", ""},
		{"empty resource id", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveOwner(context.Background(), tt.resourceID)
			if err != nil {
				t.Fatalf("ResolveOwner() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveOwner(%q) = %q, want %q", tt.resourceID, got, tt.want)
			}
		})
	}
}

func TestTagOwnerResolver_CachesLookups(t *testing.T) {
	api := &fakeTagsAPI{tags: map[string][]ec2types.TagDescription{
		"i-1": {tag("Owner", "alice")},
	}}
	r := NewTagOwnerResolver(api, testLog())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if owner, _ := r.ResolveOwner(ctx, "i-1"); owner != "alice" {
			t.Fatalf("ResolveOwner() = %q, want alice", owner)
		}
	}
	if api.calls != 1 {
		t.Errorf("DescribeTags called %d times, want 1 (cached)", api.calls)
	}

	// Negative results are cached too.
	r.ResolveOwner(ctx, "i-missing")
	r.ResolveOwner(ctx, "i-missing")
	if api.calls != 2 {
		t.Errorf("DescribeTags called %d times, want 2", api.calls)
	}
}

func TestTagOwnerResolver_LookupFailureResolvesUnknown(t *testing.T) {
	api := &fakeTagsAPI{err: errors.New("throttled")}
	r := NewTagOwnerResolver(api, testLog())

	owner, err := r.ResolveOwner(context.Background(), "i-1")
	if err != nil {
		t.Errorf("ResolveOwner() error = %v, want nil on lookup failure", err)
	}
	if owner != "" {
		t.Errorf("ResolveOwner() = %q, want empty", owner)
	}
}
