package domain

// GroupCount summarizes the invitation messages of one contact group for the UI.
type GroupCount struct {
	MessageCount    int
	UnreadCount     int
	LatestTimestamp int64
}

// Track returns the count updated with one more message.
func (c GroupCount) Track(timestamp int64, read bool) GroupCount {
	c.MessageCount++
	if !read {
		c.UnreadCount++
	}
	if timestamp > c.LatestTimestamp {
		c.LatestTimestamp = timestamp
	}
	return c
}
