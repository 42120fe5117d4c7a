// Package queuev1 holds the wire messages, service descriptor and client of
// the playqueue.v1.Queue gRPC service. Messages travel as JSON.
package queuev1

import "time"

// Placement kinds on the wire.
const (
	PlaceAppend = "append"
	PlaceFirst  = "first"
	PlaceAfter  = "after"
	PlaceNone   = "none"
)

// Placement is an ordering directive. AfterID is used only with kind "after".
type Placement struct {
	Kind    string `json:"kind"`
	AfterID string `json:"after_id,omitempty"`
}

// Item is the read representation of a queue item.
type Item struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Position    *int32     `json:"position,omitempty"`
	AfterID     string     `json:"after_id,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Identifier  string     `json:"identifier"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	Hosts       string     `json:"hosts,omitempty"`
	Program     string     `json:"program,omitempty"`
	OriginURL   string     `json:"origin_url,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Source      string     `json:"source"`
	Playtime    int32      `json:"playtime"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemFields carries writable attributes. Nil fields are not sent.
type ItemFields struct {
	Identifier  *string    `json:"identifier,omitempty"`
	Title       *string    `json:"title,omitempty"`
	URL         *string    `json:"url,omitempty"`
	Description *string    `json:"description,omitempty"`
	Hosts       *string    `json:"hosts,omitempty"`
	Program     *string    `json:"program,omitempty"`
	OriginURL   *string    `json:"origin_url,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Source      *string    `json:"source,omitempty"`
	Playtime    *int32     `json:"playtime,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Status      *string    `json:"status,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Placement   *Placement `json:"placement,omitempty"`
}

type CreateItemRequest struct {
	Item ItemFields `json:"item"`
}

type UpdateItemRequest struct {
	ID   string     `json:"id"`
	Item ItemFields `json:"item"`
}

type GetItemRequest struct {
	ID string `json:"id"`
}

type DeleteItemRequest struct {
	ID string `json:"id"`
}

type DeleteItemResponse struct{}

// ItemResponse answers create, update and get.
type ItemResponse struct {
	Item *Item `json:"item"`
}

type ListItemsRequest struct {
	Statuses    []string `json:"statuses,omitempty"`
	Identifiers []string `json:"identifiers,omitempty"`
	Sources     []string `json:"sources,omitempty"`
	AfterID     string   `json:"after_id,omitempty"`
	Page        int32    `json:"page,omitempty"`
	PageSize    int32    `json:"page_size,omitempty"`
}

type PageMeta struct {
	TotalCount  int32 `json:"total_count"`
	TotalPages  int32 `json:"total_pages"`
	CurrentPage int32 `json:"current_page"`
	PageSize    int32 `json:"page_size"`
}

type ListItemsResponse struct {
	Items []*Item  `json:"items"`
	Meta  PageMeta `json:"meta"`
}

type ResortRequest struct{}

type ResortResponse struct {
	Moved int32 `json:"moved"`
}
