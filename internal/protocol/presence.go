package protocol

import (
	"encoding/json"
)

var null = json.RawMessage("null")

// PresenceUser is the channel_data embedded in a presence admission.
type PresenceUser struct {
	UserID   any `json:"user_id"`
	UserInfo any `json:"user_info,omitempty"`
}

// EncodePresenceUser serializes the channel_data that the auth endpoint signs.
func EncodePresenceUser(userID, userInfo any) (string, error) {
	b, err := json.Marshal(PresenceUser{UserID: userID, UserInfo: userInfo})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UserInfo extracts user_info from stored presence user data. It returns
// JSON null when the data is empty, not an object, or has no user_info.
func UserInfo(userData string) json.RawMessage {
	info, ok := lookupUserInfo(userData)
	if !ok {
		return null
	}
	return info
}

// MemberInfo is the entry a presence member contributes to the member list:
// its user_info, or the whole user data when user_info is absent.
func MemberInfo(userData string) json.RawMessage {
	if info, ok := lookupUserInfo(userData); ok {
		return info
	}
	if userData != "" && json.Valid([]byte(userData)) {
		return json.RawMessage(userData)
	}
	return null
}

func lookupUserInfo(userData string) (json.RawMessage, bool) {
	if userData == "" {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(userData), &fields); err != nil {
		return nil, false
	}
	info, ok := fields["user_info"]
	if !ok || len(info) == 0 {
		return nil, false
	}
	return info, true
}
