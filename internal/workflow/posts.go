package workflow

// PostStatus is the moderation status stored on a post row.
type PostStatus string

const (
	PostPending   PostStatus = "pending"
	PostApproved  PostStatus = "approved"
	PostRejected  PostStatus = "rejected"
	PostPublished PostStatus = "published"
)

// PostStatuses returns every post status in workflow order.
func PostStatuses() []PostStatus {
	return []PostStatus{PostPending, PostApproved, PostRejected, PostPublished}
}

// ParsePostStatus validates a raw status value.
func ParsePostStatus(s string) (PostStatus, bool) {
	for _, status := range PostStatuses() {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// PostEvent is something that moves a post between statuses.
type PostEvent string

const (
	// PostApprove and PostReject are moderator decisions taken in the dashboard.
	PostApprove PostEvent = "approve"
	PostReject  PostEvent = "reject"

	// PostImageGenerated and PostPublish are reported by the automation
	// through the callback endpoint.
	PostImageGenerated PostEvent = "image_generated"
	PostPublish        PostEvent = "publish"
)

// Posts is the post moderation state machine.
//
// rejected and published are terminal. Image generation may be re-run on an
// approved post, which keeps it approved.
var Posts = NewMachine("post", []Transition[PostStatus, PostEvent]{
	{From: PostPending, Event: PostApprove, To: PostApproved},
	{From: PostPending, Event: PostReject, To: PostRejected},
	{From: PostApproved, Event: PostReject, To: PostRejected},
	{From: PostPending, Event: PostImageGenerated, To: PostApproved},
	{From: PostApproved, Event: PostImageGenerated, To: PostApproved},
	{From: PostApproved, Event: PostPublish, To: PostPublished},
})

// CanGenerateImage reports whether the image-generation webhook may be
// triggered for a post in status s.
func CanGenerateImage(s PostStatus) bool {
	return s == PostPending
}

// CanPublish reports whether the publish webhook may be triggered for a
// post in status s.
func CanPublish(s PostStatus) bool {
	return Posts.Can(s, PostPublish)
}
