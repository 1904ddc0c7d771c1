package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post status values.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Author is the user reference embedded in each post. Responses project
// only email and name; the ID is kept for authorization checks and is
// set at creation from the authenticated identity, never changed after.
type Author struct {
	ID    string `json:"-"     bson:"id"`
	Email string `json:"email" bson:"email"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
}

// Post is a single blog post stored in MongoDB.
type Post struct {
	ID          primitive.ObjectID `json:"id"                    bson:"_id,omitempty"`
	Title       string             `json:"title"                 bson:"title"`
	Subtitle    string             `json:"subtitle,omitempty"    bson:"subtitle,omitempty"`
	Content     string             `json:"content"               bson:"content"`
	Summary     string             `json:"summary,omitempty"     bson:"summary,omitempty"`
	Tags        []string           `json:"tags"                  bson:"tags"`
	Category    string             `json:"category,omitempty"    bson:"category,omitempty"`
	CoverImage  string             `json:"cover_image,omitempty" bson:"cover_image,omitempty"`
	Status      string             `json:"status"                bson:"status"`
	PublishedAt *time.Time         `json:"published_at"          bson:"published_at"`
	Views       int64              `json:"views"                 bson:"views"`
	Author      Author             `json:"author"                bson:"author"`
	CreatedAt   time.Time          `json:"created_at"            bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"            bson:"updated_at"`
}

// SetStatus is the single transition point for status changes.
// published_at is derived here and only here: entering published stamps
// the current time, entering draft clears it. Re-asserting the current
// status leaves published_at untouched.
func (p *Post) SetStatus(status string, now time.Time) {
	switch {
	case status == StatusPublished && p.Status != StatusPublished:
		t := now.UTC()
		p.PublishedAt = &t
	case status == StatusDraft:
		p.PublishedAt = nil
	}
	p.Status = status
}

// CreatePostRequest is the JSON body for POST /api/posts.
// Author is never read from the body; it comes from the authenticated
// identity. published_at is never accepted from callers.
type CreatePostRequest struct {
	Title      string   `json:"title"    validate:"required"`
	Subtitle   string   `json:"subtitle"`
	Content    string   `json:"content"  validate:"required"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Category   string   `json:"category"`
	CoverImage string   `json:"cover_image"`
	Status     string   `json:"status"   validate:"omitempty,oneof=draft published"`
}

// UpdatePostRequest is the JSON body for PUT /api/posts/{id}.
// Pointer fields distinguish "absent" from "set to empty": a present
// field overwrites the stored value even when empty, an absent field
// keeps it.
type UpdatePostRequest struct {
	Title      *string   `json:"title"    validate:"omitempty,min=1"`
	Subtitle   *string   `json:"subtitle"`
	Content    *string   `json:"content"  validate:"omitempty,min=1"`
	Summary    *string   `json:"summary"`
	Tags       *[]string `json:"tags"`
	Category   *string   `json:"category"`
	CoverImage *string   `json:"cover_image"`
	Status     *string   `json:"status"   validate:"omitempty,oneof=draft published"`
}

// Apply merges the request into the post and re-derives published_at
// when the status changes.
func (r *UpdatePostRequest) Apply(p *Post, now time.Time) {
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Subtitle != nil {
		p.Subtitle = *r.Subtitle
	}
	if r.Content != nil {
		p.Content = *r.Content
	}
	if r.Summary != nil {
		p.Summary = *r.Summary
	}
	if r.Tags != nil {
		p.Tags = *r.Tags
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.CoverImage != nil {
		p.CoverImage = *r.CoverImage
	}
	if r.Status != nil {
		p.SetStatus(*r.Status, now)
	}
}
