package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/provtag/pkg/engine/provenance"
	"github.com/DrSkyle/provtag/pkg/resource"
)

const instanceARN = "arn:aws:ec2:eu-west-1:123456789012:instance/i-0abc"

func tagList(kv ...string) []types.Tag {
	var out []types.Tag
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, types.Tag{Key: aws.String(kv[i]), Value: aws.String(kv[i+1])})
	}
	return out
}

func singleResource(tags []types.Tag) func(context.Context, *rgt.GetResourcesInput, ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error) {
	return func(ctx context.Context, in *rgt.GetResourcesInput, _ ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error) {
		return &rgt.GetResourcesOutput{
			ResourceTagMappingList: []types.ResourceTagMapping{
				{ResourceARN: aws.String(instanceARN), Tags: tags},
			},
		}, nil
	}
}

func TestTaggingInventory_ListResources_Pages(t *testing.T) {
	var tokens []string
	mock := &mockTaggingClient{
		GetResourcesFunc: func(ctx context.Context, in *rgt.GetResourcesInput, _ ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error) {
			tokens = append(tokens, aws.ToString(in.PaginationToken))
			if in.PaginationToken == nil {
				return &rgt.GetResourcesOutput{
					ResourceTagMappingList: []types.ResourceTagMapping{
						{ResourceARN: aws.String(instanceARN), Tags: tagList("Name", "web-1", "Lifetime", "30d")},
					},
					PaginationToken: aws.String("page-2"),
				}, nil
			}
			return &rgt.GetResourcesOutput{
				ResourceTagMappingList: []types.ResourceTagMapping{
					{ResourceARN: aws.String("arn:aws:s3:::logs-bucket")},
				},
			}, nil
		},
	}

	inv := &TaggingInventory{Client: mock, Region: "us-east-1", ResourceTypes: []string{"ec2:instance", "s3:bucket"}}

	var got []resource.Resource
	err := inv.ListResources(context.Background(), func(r resource.Resource) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"", "page-2"}, tokens)

	assert.Equal(t, instanceARN, got[0].ID)
	assert.Equal(t, "ec2:instance", got[0].Type)
	assert.Equal(t, "web-1", got[0].Name)
	assert.Equal(t, "eu-west-1", got[0].Region)
	assert.Equal(t, TagFingerprint(map[string]string{"Name": "web-1", "Lifetime": "30d"}), got[0].Version)

	assert.Equal(t, "s3", got[1].Type)
	assert.Equal(t, "logs-bucket", got[1].Name)
	assert.Equal(t, "us-east-1", got[1].Region, "global ARNs fall back to the session region")
	assert.NotNil(t, got[1].Tags)
}

func TestTaggingInventory_ListResources_Error(t *testing.T) {
	boom := errors.New("access denied")
	mock := &mockTaggingClient{
		GetResourcesFunc: func(ctx context.Context, in *rgt.GetResourcesInput, _ ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error) {
			return nil, boom
		},
	}
	inv := &TaggingInventory{Client: mock}
	err := inv.ListResources(context.Background(), func(resource.Resource) error { return nil })
	assert.ErrorIs(t, err, boom)
}

func TestTaggingInventory_ListResources_CallbackStops(t *testing.T) {
	stop := errors.New("stop")
	mock := &mockTaggingClient{GetResourcesFunc: singleResource(nil)}
	inv := &TaggingInventory{Client: mock}
	err := inv.ListResources(context.Background(), func(resource.Resource) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestTaggingInventory_UpdateResourceTags(t *testing.T) {
	current := map[string]string{"Name": "web-1"}
	mock := &mockTaggingClient{GetResourcesFunc: singleResource(tagList("Name", "web-1"))}
	inv := &TaggingInventory{Client: mock}

	err := inv.UpdateResourceTags(context.Background(), instanceARN, TagFingerprint(current), map[string]string{
		"Name":        "web-1",
		"CreatedBy":   "alice@example.com",
		"CreatedDate": "2024-03-01",
	})
	require.NoError(t, err)
	require.Len(t, mock.tagCalls, 1, "both keys go out in one call")
	assert.Equal(t, []string{instanceARN}, mock.tagCalls[0].ResourceARNList)
	assert.Equal(t, map[string]string{
		"CreatedBy":   "alice@example.com",
		"CreatedDate": "2024-03-01",
	}, mock.tagCalls[0].Tags)
}

func TestTaggingInventory_UpdateResourceTags_VersionMismatch(t *testing.T) {
	mock := &mockTaggingClient{GetResourcesFunc: singleResource(tagList("Name", "web-1", "Owner", "bob"))}
	inv := &TaggingInventory{Client: mock}

	stale := TagFingerprint(map[string]string{"Name": "web-1"})
	err := inv.UpdateResourceTags(context.Background(), instanceARN, stale, map[string]string{"CreatedBy": "x@y"})
	assert.ErrorIs(t, err, provenance.ErrWriteConflict)
	assert.Empty(t, mock.tagCalls)
}

func TestTaggingInventory_UpdateResourceTags_Failures(t *testing.T) {
	version := TagFingerprint(map[string]string{})

	t.Run("failed resources map", func(t *testing.T) {
		mock := &mockTaggingClient{
			GetResourcesFunc: singleResource(nil),
			TagResourcesFunc: func(ctx context.Context, in *rgt.TagResourcesInput, _ ...func(*rgt.Options)) (*rgt.TagResourcesOutput, error) {
				return &rgt.TagResourcesOutput{
					FailedResourcesMap: map[string]types.FailureInfo{
						instanceARN: {ErrorCode: types.ErrorCodeInternalServiceException, ErrorMessage: aws.String("nope")},
					},
				}, nil
			},
		}
		err := (&TaggingInventory{Client: mock}).UpdateResourceTags(context.Background(), instanceARN, version, map[string]string{"CreatedBy": "x@y"})
		assert.ErrorIs(t, err, provenance.ErrWriteFailed)
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock := &mockTaggingClient{
			GetResourcesFunc: singleResource(nil),
			TagResourcesFunc: func(ctx context.Context, in *rgt.TagResourcesInput, _ ...func(*rgt.Options)) (*rgt.TagResourcesOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "ConcurrentModificationException"}
			},
		}
		err := (&TaggingInventory{Client: mock}).UpdateResourceTags(context.Background(), instanceARN, version, map[string]string{"CreatedBy": "x@y"})
		assert.ErrorIs(t, err, provenance.ErrWriteConflict)
	})

	t.Run("resource vanished", func(t *testing.T) {
		mock := &mockTaggingClient{}
		err := (&TaggingInventory{Client: mock}).UpdateResourceTags(context.Background(), instanceARN, version, map[string]string{"CreatedBy": "x@y"})
		assert.ErrorIs(t, err, provenance.ErrWriteFailed)
		assert.Empty(t, mock.tagCalls)
	})
}

func TestTagFingerprint_OrderIndependent(t *testing.T) {
	a := TagFingerprint(map[string]string{"a": "1", "b": "2"})
	b := TagFingerprint(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, TagFingerprint(map[string]string{"a": "1", "b": "3"}))
	assert.NotEqual(t, a, TagFingerprint(nil))
}

func TestResourceKind(t *testing.T) {
	cases := map[string]string{
		instanceARN: "ec2:instance",
		"arn:aws:lambda:us-east-1:1:function:fn": "lambda:function",
		"arn:aws:s3:::bucket":                    "s3",
		"not-an-arn":                             "unknown",
	}
	for in, want := range cases {
		assert.Equal(t, want, ResourceKind(in), in)
	}
}

func TestIsThrottle(t *testing.T) {
	assert.True(t, IsThrottle(&smithy.GenericAPIError{Code: "ThrottlingException"}))
	assert.False(t, IsThrottle(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, IsThrottle(errors.New("plain")))
	assert.False(t, IsThrottle(nil))
}
