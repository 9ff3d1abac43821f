package shared

const (
	UserID   = "user_id"
	UserRole = "user_role"

	RoleTeen  = "TEEN"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"

	// Raffle eligibility needs one held badge per month of the year.
	RequiredBadgesPerYear = 12

	MaxUploadSizeBytes = 10 * 1024 * 1024
	MinTextLength      = 10

	FeedChannelPrefix    = "teensha:feed:"
	FeedBroadcastChannel = "teensha:feed:broadcast"
	EventQueueKey        = "teensha:events"
)

// FeedChannel is the pub/sub channel carrying live events for one teen.
func FeedChannel(teenID string) string {
	return FeedChannelPrefix + teenID
}
