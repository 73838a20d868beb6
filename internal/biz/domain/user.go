package domain

import "time"

// StoredUser is a follower record in the local user directory
type StoredUser struct {
	OpenID        string    `json:"openid"`
	Nickname      string    `json:"nickname,omitempty"`
	Subscribe     bool      `json:"subscribe"`
	SubscribeTime time.Time `json:"subscribe_time,omitempty"`
	LastSyncTime  time.Time `json:"last_sync_time"`
	UserInfo      *UserInfo `json:"user_info,omitempty"`
}

// NewStoredUser builds a directory record from a fresh profile
func NewStoredUser(info *UserInfo, syncedAt time.Time) *StoredUser {
	u := &StoredUser{
		OpenID:       info.OpenID,
		Nickname:     info.Nickname,
		Subscribe:    info.Subscribe == 1,
		LastSyncTime: syncedAt,
		UserInfo:     info,
	}
	if info.SubscribeTime > 0 {
		u.SubscribeTime = time.Unix(info.SubscribeTime, 0)
	}
	return u
}

// UserStats summarizes the user directory
type UserStats struct {
	Total        int `json:"total"`
	Subscribed   int `json:"subscribed"`
	Unsubscribed int `json:"unsubscribed"`
}

// SyncResult reports a follower sync run
type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}
