// Package sse implements Server-Sent Events for live favorites and moderation updates.
package sse

import (
	"time"

	"github.com/estately/estately-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"

	// EventFavoriteAdded is sent to the user who favorited a listing.
	EventFavoriteAdded EventType = "favorite.added"
	// EventFavoriteRemoved is sent to the user who unfavorited a listing.
	EventFavoriteRemoved EventType = "favorite.removed"

	// EventPropertySubmitted announces a new or edited listing awaiting review.
	// Only sent to admin users.
	EventPropertySubmitted EventType = "property.submitted"
	// EventPropertyModerated carries a status or featured change to admins.
	EventPropertyModerated EventType = "property.moderated"
	// EventPropertyStatusChanged tells the seller their listing moved.
	EventPropertyStatusChanged EventType = "property.status_changed"
	// EventPropertyPublished tells every client a listing became browsable.
	EventPropertyPublished EventType = "property.published"
	// EventPropertyUnpublished tells every client a listing left the catalogue.
	EventPropertyUnpublished EventType = "property.unpublished"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one user's clients. Empty means everyone
	// allowed to see the event type.
	UserID string `json:"-"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// FavoriteEventData is the data payload for favorite events.
type FavoriteEventData struct {
	PropertyID string `json:"property_id"`
	Favorited  bool   `json:"favorited"`
}

// PropertyEventData is the data payload for listing events.
type PropertyEventData struct {
	PropertyID string        `json:"property_id"`
	SellerID   string        `json:"seller_id"`
	Title      string        `json:"title"`
	Status     domain.Status `json:"status"`
	Featured   bool          `json:"featured"`
	Edited     bool          `json:"edited,omitempty"`
}

func propertyData(p *domain.Property) PropertyEventData {
	return PropertyEventData{
		PropertyID: p.ID,
		SellerID:   p.SellerID,
		Title:      p.Title,
		Status:     p.Status,
		Featured:   p.Featured,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}

// NewFavoriteEvent creates a favorite.added or favorite.removed event for userID.
func NewFavoriteEvent(userID, propertyID string, favorited bool) Event {
	t := EventFavoriteRemoved
	if favorited {
		t = EventFavoriteAdded
	}
	return Event{
		Type:      t,
		Data:      FavoriteEventData{PropertyID: propertyID, Favorited: favorited},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewPropertySubmittedEvent creates a property.submitted event.
func NewPropertySubmittedEvent(p *domain.Property, edited bool) Event {
	data := propertyData(p)
	data.Edited = edited
	return Event{
		Type:      EventPropertySubmitted,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewPropertyModeratedEvent creates a property.moderated event.
func NewPropertyModeratedEvent(p *domain.Property) Event {
	return Event{
		Type:      EventPropertyModerated,
		Data:      propertyData(p),
		Timestamp: time.Now(),
	}
}

// NewPropertyStatusChangedEvent creates a property.status_changed event for the seller.
func NewPropertyStatusChangedEvent(p *domain.Property) Event {
	return Event{
		Type:      EventPropertyStatusChanged,
		Data:      propertyData(p),
		Timestamp: time.Now(),
		UserID:    p.SellerID,
	}
}

// NewVisibilityEvent creates property.published when the listing is public
// and property.unpublished otherwise.
func NewVisibilityEvent(p *domain.Property) Event {
	t := EventPropertyUnpublished
	if p.IsPublic() {
		t = EventPropertyPublished
	}
	return Event{
		Type:      t,
		Data:      propertyData(p),
		Timestamp: time.Now(),
	}
}
