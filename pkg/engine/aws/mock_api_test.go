package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	rgt "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
)

type mockTaggingClient struct {
	GetResourcesFunc func(ctx context.Context, params *rgt.GetResourcesInput, optFns ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error)
	TagResourcesFunc func(ctx context.Context, params *rgt.TagResourcesInput, optFns ...func(*rgt.Options)) (*rgt.TagResourcesOutput, error)

	tagCalls []*rgt.TagResourcesInput
}

func (m *mockTaggingClient) GetResources(ctx context.Context, params *rgt.GetResourcesInput, optFns ...func(*rgt.Options)) (*rgt.GetResourcesOutput, error) {
	if m.GetResourcesFunc != nil {
		return m.GetResourcesFunc(ctx, params, optFns...)
	}
	return &rgt.GetResourcesOutput{}, nil
}

func (m *mockTaggingClient) TagResources(ctx context.Context, params *rgt.TagResourcesInput, optFns ...func(*rgt.Options)) (*rgt.TagResourcesOutput, error) {
	m.tagCalls = append(m.tagCalls, params)
	if m.TagResourcesFunc != nil {
		return m.TagResourcesFunc(ctx, params, optFns...)
	}
	return &rgt.TagResourcesOutput{}, nil
}

type mockCloudTrailClient struct {
	LookupEventsFunc func(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)

	calls int
}

func (m *mockCloudTrailClient) LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error) {
	m.calls++
	if m.LookupEventsFunc != nil {
		return m.LookupEventsFunc(ctx, params, optFns...)
	}
	return &cloudtrail.LookupEventsOutput{}, nil
}
