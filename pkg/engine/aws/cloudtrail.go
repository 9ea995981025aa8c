package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"

	"github.com/DrSkyle/provtag/pkg/engine/provenance"
	"github.com/DrSkyle/provtag/pkg/resource"
)

// CloudTrailAPI is the read-only slice of the CloudTrail client we call.
type CloudTrailAPI interface {
	LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
}

// DefaultMaxPages caps a single resource lookup at 5000 events.
const DefaultMaxPages = 100

// ErrLookupTruncated is returned when the page cap is reached before the
// window is exhausted. LookupEvents pages newest first, so a truncated result
// is missing the oldest events and cannot name the creator.
var ErrLookupTruncated = errors.New("cloudtrail lookup truncated before window start")

// CloudTrailClient queries management events as the audit source.
type CloudTrailClient struct {
	Client   CloudTrailAPI
	MaxPages int
	// Gate paces follow-up pages; the first page is paced by the caller.
	Gate provenance.Gate
}

func NewCloudTrailClient(cfg aws.Config) *CloudTrailClient {
	return &CloudTrailClient{
		Client:   cloudtrail.NewFromConfig(cfg),
		MaxPages: DefaultMaxPages,
		Gate:     provenance.OpenGate,
	}
}

// QueryEvents returns every event recorded against the resource in the
// query window. CloudTrail always returns full events, so q.Fields is
// satisfied by construction.
func (c *CloudTrailClient) QueryEvents(ctx context.Context, q provenance.EventQuery) ([]resource.AuditEvent, error) {
	start, end := q.Start, q.End
	input := &cloudtrail.LookupEventsInput{
		LookupAttributes: []types.LookupAttribute{
			{
				AttributeKey:   types.LookupAttributeKeyResourceName,
				AttributeValue: aws.String(LookupKey(q.ResourceID)),
			},
		},
		StartTime:  &start,
		EndTime:    &end,
		MaxResults: aws.Int32(50),
	}

	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	gate := c.Gate
	if gate == nil {
		gate = provenance.OpenGate
	}

	var events []resource.AuditEvent
	paginator := cloudtrail.NewLookupEventsPaginator(c.Client, input)
	for page := 0; paginator.HasMorePages(); page++ {
		if page == maxPages {
			return nil, fmt.Errorf("%w: %s after %d pages", ErrLookupTruncated, q.ResourceID, maxPages)
		}
		if page > 0 {
			if err := gate.Wait(ctx); err != nil {
				return nil, err
			}
		}
		output, err := paginator.NextPage(ctx)
		if page > 0 {
			gate.Observe(err)
		}
		if err != nil {
			return nil, fmt.Errorf("cloudtrail lookup for %s: %w", q.ResourceID, err)
		}
		for _, ev := range output.Events {
			events = append(events, toAuditEvent(ev))
		}
	}
	return events, nil
}

func toAuditEvent(ev types.Event) resource.AuditEvent {
	out := resource.AuditEvent{
		Timestamp:     ev.EventTime,
		OperationName: aws.ToString(ev.EventName),
	}
	if ev.Username != nil && *ev.Username != "" {
		out.Caller = ev.Username
	}
	return out
}

// LookupKey reduces an ARN to the resource name CloudTrail indexes on
// (instance ID, bucket name, function name, ...).
func LookupKey(id string) string {
	if !arn.IsARN(id) {
		return id
	}
	parsed, err := arn.Parse(id)
	if err != nil {
		return id
	}
	res := parsed.Resource
	if i := strings.LastIndexAny(res, "/:"); i >= 0 {
		return res[i+1:]
	}
	return res
}
