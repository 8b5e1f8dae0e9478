package slack

var (
	TruncateToMaxBytes = truncateToMaxBytes
	BuildQueuedBlocks  = buildQueuedBlocks
)
