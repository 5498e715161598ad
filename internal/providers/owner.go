package providers

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/awstrack/awstrack/internal/pkg/logger"
)

// EC2TagsAPI is the subset of the EC2 client the owner resolver needs.
type EC2TagsAPI interface {
	DescribeTags(ctx context.Context, params *ec2.DescribeTagsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error)
}

// Tag keys checked for resource ownership, in precedence order.
var ownerTagKeys = []string{"Owner", "owner", "CreatedBy", "created-by"}

// TagOwnerResolver maps a resource to its owning user by reading the
// resource's ownership tags. Results are cached for the process lifetime;
// tags on monitored resources change rarely and every anomaly cycle would
// otherwise repeat the same DescribeTags calls.
type TagOwnerResolver struct {
	client EC2TagsAPI
	log    *logger.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewTagOwnerResolver(client EC2TagsAPI, log *logger.Logger) *TagOwnerResolver {
	return &TagOwnerResolver{
		client: client,
		log:    log.WithComponent("owner_resolver"),
		cache:  make(map[string]string),
	}
}

// ResolveOwner returns the user ID that owns resourceID, or "" when no
// ownership tag exists. Lookup failures resolve to unknown rather than
// failing the caller's ingestion.
func (r *TagOwnerResolver) ResolveOwner(ctx context.Context, resourceID string) (string, error) {
	if resourceID == "" {
		return "", nil
	}
	r.mu.Lock()
	if owner, ok := r.cache[resourceID]; ok {
		r.mu.Unlock()
		return owner, nil
	}
	r.mu.Unlock()

	out, err := r.client.DescribeTags(ctx, &ec2.DescribeTagsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("resource-id"), Values: []string{resourceID}},
		},
	})
	if err != nil {
		r.log.WithFields(map[string]interface{}{
			"resource_id": resourceID,
		}).WithError(err).Warn("owner tag lookup failed")
		return "", nil
	}

	owner := ""
	for _, key := range ownerTagKeys {
		for _, tag := range out.Tags {
			if aws.ToString(tag.Key) == key {
				owner = aws.ToString(tag.Value)
				break
			}
		}
		if owner != "" {
			break
		}
	}

	r.mu.Lock()
	r.cache[resourceID] = owner
	r.mu.Unlock()
	return owner, nil
}
