// Package blog holds the content side of the store: articles with derived
// slugs and read times. It never touches the pricing core.
package blog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNotFound is returned when a requested blog post does not exist.
var ErrNotFound = errors.New("blog not found")

// Categories a post may belong to.
var Categories = []string{
	"Nutrition", "Recipes", "Health", "Lifestyle", "Tips",
	"Product News", "Wellness", "Fitness", "Cooking", "Reviews",
}

// PostStatus is the editorial state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// Author is the embedded byline of a post.
type Author struct {
	Name   string `json:"name" bson:"name"`
	Avatar string `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty" bson:"bio,omitempty"`
}

// Blog is a content article. Slug and ReadTime are derived from the title and
// content; Views/Likes/Shares are engagement counters.
type Blog struct {
	ID          bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string        `json:"title" bson:"title"`
	Slug        string        `json:"slug" bson:"slug"`
	Excerpt     string        `json:"excerpt" bson:"excerpt"`
	Content     string        `json:"content" bson:"content"`
	Image       string        `json:"image" bson:"image"`
	Author      Author        `json:"author" bson:"author"`
	Category    string        `json:"category" bson:"category"`
	Tags        []string      `json:"tags" bson:"tags"`
	ReadTime    int           `json:"readTime" bson:"readTime"`
	Published   bool          `json:"published" bson:"published"`
	Featured    bool          `json:"featured" bson:"featured"`
	Views       int64         `json:"views" bson:"views"`
	Likes       int64         `json:"likes" bson:"likes"`
	Shares      int64         `json:"shares" bson:"shares"`
	Status      PostStatus    `json:"status" bson:"status"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title. A timestamp suffix keeps slugs
// unique across posts with identical titles.
func Slugify(title string, at time.Time) string {
	s := strings.ToLower(title)
	s = slugCleaner.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	return fmt.Sprintf("%s-%d", s, at.UnixMilli())
}

// ReadTimeFor estimates reading minutes at 200 words per minute, minimum 1.
func ReadTimeFor(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Validate enforces the content field constraints at the service boundary.
func (b *Blog) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return errors.New("title is required")
	}
	if len(b.Title) > 200 {
		return errors.New("title cannot exceed 200 characters")
	}
	if strings.TrimSpace(b.Excerpt) == "" {
		return errors.New("excerpt is required")
	}
	if len(b.Excerpt) > 500 {
		return errors.New("excerpt cannot exceed 500 characters")
	}
	if len(b.Content) < 100 {
		return errors.New("content must be at least 100 characters")
	}
	if len(b.Tags) > 10 {
		return errors.New("cannot have more than 10 tags")
	}
	if !validCategory(b.Category) {
		return errors.Errorf("unknown category %q", b.Category)
	}
	return nil
}

func validCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Normalize fills the derived fields before a save: slug from title, read
// time from content, and the publish timestamp on first publish.
func (b *Blog) Normalize(now time.Time) {
	if b.Slug == "" {
		b.Slug = Slugify(b.Title, now)
	}
	b.ReadTime = ReadTimeFor(b.Content)
	if b.Status == "" {
		b.Status = StatusDraft
	}
	if b.Status == StatusPublished {
		b.Published = true
		if b.PublishedAt == nil {
			b.PublishedAt = &now
		}
	}
}

// ListFilter narrows a blog listing.
type ListFilter struct {
	Category  string
	Featured  *bool
	Published *bool
	Status    PostStatus
	Search    string
	Tags      []string
	Page      int64
	Limit     int64
}

// Repository defines persistence operations for blog posts.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Blog, int64, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*Blog, error)
	// GetBySlug also increments the post's view counter.
	GetBySlug(ctx context.Context, slug string) (*Blog, error)
	Create(ctx context.Context, b *Blog) error
	Update(ctx context.Context, id bson.ObjectID, b *Blog) (*Blog, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	Count(ctx context.Context) (int64, error)
}
