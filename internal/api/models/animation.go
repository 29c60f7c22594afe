package models

import "github.com/Mwapsam/tracker/internal/animation"

// WaypointsResponse is the body of GET /v1/trips/{id}/waypoints.
type WaypointsResponse struct {
	Route    animation.Route     `json:"route"`
	Segments []animation.Segment `json:"segments"`
}

// AnimationStatus is the body of POST /v1/trips/{id}/animation.
type AnimationStatus struct {
	Key         string `json:"key"`
	Running     bool   `json:"running"`
	Subscribers int    `json:"subscribers"`
}
