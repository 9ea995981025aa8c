//go:build integration

package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/DrSkyle/provtag/pkg/resource"
)

// TestTaggingInventory_Integration runs the inventory against LocalStack.
// Requires Docker.
func TestTaggingInventory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := localstack.RunContainer(ctx,
		testcontainers.WithImage("localstack/localstack:3.0"),
	)
	require.NoError(t, err, "start LocalStack")
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}()

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "")
	require.NoError(t, err)

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:           "http://" + endpoint,
			SigningRegion: "us-east-1",
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     "test",
				SecretAccessKey: "test",
				SessionToken:    "test",
			}, nil
		})),
	)
	require.NoError(t, err)

	// Seed an untagged-provenance bucket.
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = true })
	_, err = s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("provtag-it")})
	require.NoError(t, err)
	_, err = s3Client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket: aws.String("provtag-it"),
		Tagging: &s3types.Tagging{TagSet: []s3types.Tag{
			{Key: aws.String("Lifetime"), Value: aws.String("90d")},
		}},
	})
	require.NoError(t, err)

	inv := NewTaggingInventory(cfg, []string{"s3"})

	var listed []resource.Resource
	require.NoError(t, inv.ListResources(ctx, func(r resource.Resource) error {
		listed = append(listed, r)
		return nil
	}))
	require.NotEmpty(t, listed)

	target := listed[0]
	assert.Equal(t, "90d", target.Tags["Lifetime"])

	err = inv.UpdateResourceTags(ctx, target.ID, target.Version, map[string]string{
		"CreatedBy":   resource.Unknown,
		"CreatedDate": resource.Unknown,
	})
	require.NoError(t, err)

	// The old version token must now be rejected.
	err = inv.UpdateResourceTags(ctx, target.ID, target.Version, map[string]string{"CreatedBy": "late@example.com"})
	assert.Error(t, err)
}
