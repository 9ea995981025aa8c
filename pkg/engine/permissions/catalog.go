package permissions

// Catalog maps engine components to the IAM actions they call.
var Catalog = map[string][]string{
	"inventory": {
		"tag:GetResources",
	},
	"audit": {
		"cloudtrail:LookupEvents",
	},
	"artifacts": {
		"s3:PutObject",
	},
}

// WriteActions are needed to persist provenance tags. TagResources delegates
// to each service's own tagging action.
var WriteActions = []string{
	"tag:TagResources",
	"ec2:CreateTags",
	"s3:PutBucketTagging",
	"s3:GetBucketTagging",
	"rds:AddTagsToResource",
	"lambda:TagResource",
	"dynamodb:TagResource",
	"elasticloadbalancing:AddTags",
	"ecs:TagResource",
	"eks:TagResource",
	"sns:TagResource",
	"sqs:TagQueue",
	"logs:TagResource",
}

// CorePermissions are required by every run.
func CorePermissions() []string {
	return []string{
		"sts:GetCallerIdentity",
	}
}
