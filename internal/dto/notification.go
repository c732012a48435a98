package dto

// UnreadCountResponse reports the number of unread inbox rows.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// MarkAllReadResponse reports how many rows were marked read.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
