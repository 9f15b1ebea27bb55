package notifications

import (
	"encoding/json"
	"time"

	"overthinkistan/internal/models"
)

// Post event types.
const (
	PostCreated  = "post.created"
	PostUpdated  = "post.updated"
	PostDeleted  = "post.deleted"
	PostLiked    = "post.liked"
	PostDisliked = "post.disliked"
)

// PostEvent is the payload streamed to feed subscribers.
type PostEvent struct {
	Type           string    `json:"type"`
	RefID          string    `json:"refId"`
	AuthorRefID    string    `json:"authorRefId,omitempty"`
	ActorRefID     string    `json:"actorRefId,omitempty"`
	CategoryRefIDs []string  `json:"categoryRefIds"`
	LikeCount      int       `json:"likeCount"`
	DislikeCount   int       `json:"dislikeCount"`
	At             time.Time `json:"at"`
}

// NewPostEvent snapshots post for an event of the given type.
func NewPostEvent(eventType string, post *models.Post, actorRefID string) PostEvent {
	ev := PostEvent{
		Type:       eventType,
		ActorRefID: actorRefID,
		At:         time.Now().UTC(),
	}
	if post == nil {
		return ev
	}
	ev.RefID = post.RefID
	ev.CategoryRefIDs = append([]string{}, post.CategoryRefIDs...)
	ev.LikeCount = post.LikeCount
	ev.DislikeCount = post.DislikeCount
	if !post.IsAnonymous {
		ev.AuthorRefID = post.AuthorRefID()
	}
	return ev
}

// Encode renders the event as the JSON text frame clients receive.
func (e PostEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}
