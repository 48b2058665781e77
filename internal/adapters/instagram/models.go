package instagram

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexID принимает идентификатор и строкой, и числом.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseUint(n.String(), 10, 64); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type loginRequest struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type loginResponse struct {
	UserID    flexID          `json:"user_id"`
	SessionID string          `json:"session_id"`
	Settings  json.RawMessage `json:"settings"`
}

type mediaDTO struct {
	PK   flexID `json:"pk"`
	Code string `json:"code"`
}

type commentDTO struct {
	PK   flexID `json:"pk"`
	Text string `json:"text"`
	User struct {
		PK       flexID `json:"pk"`
		Username string `json:"username"`
	} `json:"user"`
}

type replyRequest struct {
	MediaID            string `json:"media_id"`
	Text               string `json:"text"`
	RepliedToCommentID string `json:"replied_to_comment_id,omitempty"`
}

type directRequest struct {
	UserIDs []string `json:"user_ids"`
	Text    string   `json:"text"`
}

type friendshipDTO struct {
	FollowedBy bool `json:"followed_by"`
	Following  bool `json:"following"`
}

type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}
