package aws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"

	"github.com/DrSkyle/provtag/pkg/engine/provenance"
	"github.com/DrSkyle/provtag/pkg/resource"
)

// TaggingAPI is the slice of the Resource Groups Tagging API we call.
type TaggingAPI interface {
	GetResources(ctx context.Context, params *rgt.GetResourcesInput, optFns ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error)
	TagResources(ctx context.Context, params *rgt.TagResourcesInput, optFns ...func(*rgt.Options)) (*rgt.TagResourcesOutput, error)
}

// TaggingInventory lists taggable resources and rewrites their tags.
type TaggingInventory struct {
	Client        TaggingAPI
	Region        string
	ResourceTypes []string
	Timeout       time.Duration
	Gate          provenance.Gate
}

func NewTaggingInventory(cfg aws.Config, resourceTypes []string) *TaggingInventory {
	return &TaggingInventory{
		Client:        rgt.NewFromConfig(cfg),
		Region:        cfg.Region,
		ResourceTypes: resourceTypes,
		Gate:          provenance.OpenGate,
	}
}

// ListResources pages through the inventory, handing each resource to fn
// as its page arrives. An error from fn stops the listing and is returned.
func (t *TaggingInventory) ListResources(ctx context.Context, fn func(resource.Resource) error) error {
	input := &rgt.GetResourcesInput{
		ResourcesPerPage:    aws.Int32(100),
		ResourceTypeFilters: t.ResourceTypes,
	}

	paginator := rgt.NewGetResourcesPaginator(t.Client, input)
	for paginator.HasMorePages() {
		page, err := t.nextPage(ctx, paginator)
		if err != nil {
			return fmt.Errorf("failed to list tagged resources: %w", err)
		}
		for _, m := range page.ResourceTagMappingList {
			if err := fn(t.toResource(m)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *TaggingInventory) nextPage(ctx context.Context, p *rgt.GetResourcesPaginator) (*rgt.GetResourcesOutput, error) {
	ctx, cancel := t.callContext(ctx)
	defer cancel()
	if err := t.gate().Wait(ctx); err != nil {
		return nil, err
	}
	page, err := p.NextPage(ctx)
	t.gate().Observe(err)
	return page, err
}

// UpdateResourceTags writes tags onto id if its current tag set still
// matches expectedVersion. Only keys whose value changes are sent, in a
// single TagResources call.
func (t *TaggingInventory) UpdateResourceTags(ctx context.Context, id, expectedVersion string, tags map[string]string) error {
	ctx, cancel := t.callContext(ctx)
	defer cancel()

	current, err := t.currentTags(ctx, id)
	if err != nil {
		return err
	}
	if got := TagFingerprint(current); got != expectedVersion {
		return fmt.Errorf("%w: %s changed since listing (version %s, expected %s)", provenance.ErrWriteConflict, id, got, expectedVersion)
	}

	diff := make(map[string]string)
	for k, v := range tags {
		if cur, ok := current[k]; !ok || cur != v {
			diff[k] = v
		}
	}
	if len(diff) == 0 {
		return nil
	}

	if err := t.gate().Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", provenance.ErrWriteFailed, id, err)
	}
	out, err := t.Client.TagResources(ctx, &rgt.TagResourcesInput{
		ResourceARNList: []string{id},
		Tags:            diff,
	})
	t.gate().Observe(err)
	if err != nil {
		if IsConflict(err) {
			return fmt.Errorf("%w: %s: %w", provenance.ErrWriteConflict, id, err)
		}
		return fmt.Errorf("%w: %s: %w", provenance.ErrWriteFailed, id, err)
	}
	if failure, ok := out.FailedResourcesMap[id]; ok {
		return fmt.Errorf("%w: %s: %s (%s)", provenance.ErrWriteFailed, id,
			aws.ToString(failure.ErrorMessage), string(failure.ErrorCode))
	}
	return nil
}

func (t *TaggingInventory) currentTags(ctx context.Context, id string) (map[string]string, error) {
	if err := t.gate().Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", provenance.ErrWriteFailed, id, err)
	}
	out, err := t.Client.GetResources(ctx, &rgt.GetResourcesInput{
		ResourceARNList: []string{id},
	})
	t.gate().Observe(err)
	if err != nil {
		return nil, fmt.Errorf("%w: re-reading %s: %w", provenance.ErrWriteFailed, id, err)
	}
	for _, m := range out.ResourceTagMappingList {
		if aws.ToString(m.ResourceARN) == id {
			return parseTags(m.Tags), nil
		}
	}
	return nil, fmt.Errorf("%w: %s no longer exists", provenance.ErrWriteFailed, id)
}

func (t *TaggingInventory) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.Timeout > 0 {
		return context.WithTimeout(ctx, t.Timeout)
	}
	return context.WithCancel(ctx)
}

func (t *TaggingInventory) gate() provenance.Gate {
	if t.Gate == nil {
		return provenance.OpenGate
	}
	return t.Gate
}

func (t *TaggingInventory) toResource(m types.ResourceTagMapping) resource.Resource {
	id := aws.ToString(m.ResourceARN)
	tags := parseTags(m.Tags)

	r := resource.Resource{
		ID:      id,
		Type:    ResourceKind(id),
		Name:    tags["Name"],
		Region:  t.Region,
		Tags:    tags,
		Version: TagFingerprint(tags),
	}
	if r.Name == "" {
		r.Name = LookupKey(id)
	}
	if parsed, err := arn.Parse(id); err == nil && parsed.Region != "" {
		r.Region = parsed.Region
	}
	return r
}

func parseTags(tags []types.Tag) map[string]string {
	out := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Key != nil && t.Value != nil {
			out[*t.Key] = *t.Value
		}
	}
	return out
}

// ResourceKind derives "service:type" from an ARN, e.g. "ec2:instance".
func ResourceKind(id string) string {
	parsed, err := arn.Parse(id)
	if err != nil {
		return "unknown"
	}
	res := parsed.Resource
	if i := strings.IndexAny(res, "/:"); i >= 0 {
		return parsed.Service + ":" + res[:i]
	}
	return parsed.Service
}

// TagFingerprint is the version token for providers without ETags: a hash
// of the sorted tag set. Any concurrent tag change alters it.
func TagFingerprint(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, tags[k])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
