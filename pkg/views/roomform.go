package views

import (
	"context"
	"strings"
	"time"

	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
)

type RoomEditorAPI interface {
	CreateRoom(ctx context.Context, in hotelapi.RoomInput) (*hotelapi.Room, error)
	UpdateRoom(ctx context.Context, id string, in hotelapi.RoomInput) (*hotelapi.Room, error)
}

// ValidateRoom returns the first problem with in, or "" when it may be sent.
func ValidateRoom(in hotelapi.RoomInput) string {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return "Room name is required"
	case strings.TrimSpace(in.Description) == "":
		return "Room description is required"
	case in.PricePerNight <= 0:
		return "Price per night must be greater than 0"
	case in.Capacity < 1:
		return "Room capacity must be at least 1"
	}
	return ""
}

// SaveRoom creates a room when id is empty and updates it otherwise.
func SaveRoom(ctx context.Context, api RoomEditorAPI, id string, in hotelapi.RoomInput, opts ...Option) bool {
	o := buildOptions(opts)
	if msg := ValidateRoom(in); msg != "" {
		o.notifier.Notify(ctx, Notification{Level: LevelError, Title: "Validation Error", Message: msg})
		return false
	}

	subject := events.RoomCreated
	if id == "" {
		room, err := api.CreateRoom(ctx, in)
		if err != nil {
			o.failure(ctx, "Error", "Failed to save room. Please try again.", err)
			return false
		}
		if room != nil {
			id = room.ID
		}
		o.success(ctx, "Success", "Room created successfully")
	} else {
		if _, err := api.UpdateRoom(ctx, id, in); err != nil {
			o.failure(ctx, "Error", "Failed to save room. Please try again.", err)
			return false
		}
		subject = events.RoomUpdated
		o.success(ctx, "Room Updated", "The room has been updated successfully")
	}

	o.publish(ctx, subject, events.RoomChangedEvent{
		RoomID:    id,
		Name:      in.Name,
		ActorID:   o.actorID,
		ChangedAt: time.Now().UTC(),
	})
	return true
}
