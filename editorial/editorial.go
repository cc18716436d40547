// Package editorial runs the blog workflow. Blogs are created as drafts,
// only admins publish, edit or delete them, and the public sees published
// posts only.
package editorial

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Arman3747/BloodConnect-Server/access"
	"github.com/Arman3747/BloodConnect-Server/apperr"
	"github.com/Arman3747/BloodConnect-Server/events"
	"github.com/Arman3747/BloodConnect-Server/identity"
	"github.com/Arman3747/BloodConnect-Server/logger"
	"github.com/Arman3747/BloodConnect-Server/models"
	"github.com/Arman3747/BloodConnect-Server/store"
)

type Blogs interface {
	FindByID(ctx context.Context, id primitive.ObjectID, status string) (*models.Blog, error)
	List(ctx context.Context, status string) ([]models.Blog, error)
	Insert(ctx context.Context, b *models.Blog) error
	Update(ctx context.Context, id primitive.ObjectID, set map[string]any) (store.UpdateResult, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// ImageStore hosts blog thumbnails.
type ImageStore interface {
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
	Destroy(ctx context.Context, url string) error
}

// Thumbnail is an uploaded image that replaces BlogInput.Thumbnail.
type Thumbnail struct {
	Filename string
	Body     io.Reader
}

type Service struct {
	blogs  Blogs
	images ImageStore
	gate   *access.Gate
	pub    events.Publisher
	log    *slog.Logger
	now    func() time.Time
}

// NewService builds the editorial gate. images may be nil, in which case
// thumbnails must be given as URLs.
func NewService(blogs Blogs, images ImageStore, gate *access.Gate, pub events.Publisher, log *slog.Logger) *Service {
	return &Service{
		blogs:  blogs,
		images: images,
		gate:   gate,
		pub:    pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ---------------- CREATE ----------------

func (s *Service) Create(ctx context.Context, id *identity.Identity, in models.BlogInput, thumb *Thumbnail) (*models.Blog, error) {
	if err := s.gate.Check(ctx, id, access.OpCreateBlog, nil); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Thumbnail = strings.TrimSpace(in.Thumbnail)
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	upload := thumb != nil && thumb.Body != nil
	if in.Thumbnail == "" && !upload {
		return nil, apperr.Validation("missing required fields: thumbnail")
	}
	if upload && s.images == nil {
		return nil, apperr.Validation("image upload is not available; send a thumbnail url")
	}

	thumbnail := in.Thumbnail
	if upload {
		url, err := s.images.Upload(ctx, thumb.Body, thumb.Filename)
		if err != nil {
			return nil, apperr.Upstream("thumbnail upload failed", err)
		}
		thumbnail = url
	}

	now := s.now()
	b := &models.Blog{
		Title:     in.Title,
		Thumbnail: thumbnail,
		Content:   in.Content,
		Status:    models.BlogDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.blogs.Insert(ctx, b); err != nil {
		if upload {
			s.destroyThumbnail(ctx, thumbnail)
		}
		return nil, err
	}
	return b, nil
}

// ---------------- READ ----------------

func (s *Service) ListPublished(ctx context.Context) ([]models.Blog, error) {
	if err := s.gate.Check(ctx, nil, access.OpListPublishedBlogs, nil); err != nil {
		return nil, err
	}
	return s.blogs.List(ctx, models.BlogPublished)
}

// GetPublished returns a published blog; drafts are reported as not found.
func (s *Service) GetPublished(ctx context.Context, blogID string) (*models.Blog, error) {
	if err := s.gate.Check(ctx, nil, access.OpGetPublishedBlog, nil); err != nil {
		return nil, err
	}
	oid, err := store.ParseID(blogID, "blog")
	if err != nil {
		return nil, err
	}
	return s.blogs.FindByID(ctx, oid, models.BlogPublished)
}

func (s *Service) ListAll(ctx context.Context, id *identity.Identity) ([]models.Blog, error) {
	if err := s.gate.Check(ctx, id, access.OpListAllBlogs, nil); err != nil {
		return nil, err
	}
	return s.blogs.List(ctx, "")
}

func (s *Service) GetAny(ctx context.Context, id *identity.Identity, blogID string) (*models.Blog, error) {
	if err := s.gate.Check(ctx, id, access.OpGetAnyBlog, nil); err != nil {
		return nil, err
	}
	oid, err := store.ParseID(blogID, "blog")
	if err != nil {
		return nil, err
	}
	return s.blogs.FindByID(ctx, oid, "")
}

// ---------------- UPDATE ----------------

// PatchStatus publishes or unpublishes a blog.
func (s *Service) PatchStatus(ctx context.Context, id *identity.Identity, blogID, status string) (store.UpdateResult, error) {
	if err := s.gate.Check(ctx, id, access.OpPatchBlogStatus, nil); err != nil {
		return store.UpdateResult{}, err
	}
	if status != models.BlogDraft && status != models.BlogPublished {
		return store.UpdateResult{}, apperr.Validation("invalid status")
	}
	res, err := s.update(ctx, blogID, map[string]any{"status": status})
	if err != nil {
		return res, err
	}
	if status == models.BlogPublished && res.Modified > 0 {
		events.Emit(ctx, s.pub, s.log, events.BlogPublished, map[string]any{"blog_id": blogID})
	}
	return res, nil
}

// Edit replaces the non-empty fields of in.
func (s *Service) Edit(ctx context.Context, id *identity.Identity, blogID string, in models.BlogInput) (store.UpdateResult, error) {
	if err := s.gate.Check(ctx, id, access.OpEditBlog, nil); err != nil {
		return store.UpdateResult{}, err
	}
	set := map[string]any{}
	if v := strings.TrimSpace(in.Title); v != "" {
		set["title"] = v
	}
	if v := strings.TrimSpace(in.Thumbnail); v != "" {
		set["thumbnail"] = v
	}
	if strings.TrimSpace(in.Content) != "" {
		set["content"] = in.Content
	}
	if len(set) == 0 {
		return store.UpdateResult{}, apperr.Validation("at least one of title, thumbnail or content is required")
	}
	return s.update(ctx, blogID, set)
}

func (s *Service) update(ctx context.Context, blogID string, set map[string]any) (store.UpdateResult, error) {
	oid, err := store.ParseID(blogID, "blog")
	if err != nil {
		return store.UpdateResult{}, err
	}
	res, err := s.blogs.Update(ctx, oid, set)
	if err != nil {
		return store.UpdateResult{}, err
	}
	if res.Matched == 0 {
		return res, apperr.NotFound("blog not found")
	}
	return res, nil
}

// ---------------- DELETE ----------------

// Delete removes a blog and then, best effort, its hosted thumbnail.
func (s *Service) Delete(ctx context.Context, id *identity.Identity, blogID string) error {
	if err := s.gate.Check(ctx, id, access.OpDeleteBlog, nil); err != nil {
		return err
	}
	oid, err := store.ParseID(blogID, "blog")
	if err != nil {
		return err
	}
	b, err := s.blogs.FindByID(ctx, oid, "")
	if err != nil {
		return err
	}
	n, err := s.blogs.Delete(ctx, oid)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("blog not found")
	}

	s.destroyThumbnail(ctx, b.Thumbnail)
	return nil
}

// destroyThumbnail removes a hosted image, logging instead of failing.
func (s *Service) destroyThumbnail(ctx context.Context, url string) {
	if s.images == nil || url == "" {
		return
	}
	if err := s.images.Destroy(ctx, url); err != nil {
		logger.FromContext(ctx, s.log).Warn("thumbnail_cleanup_failed",
			slog.String("thumbnail", url),
			slog.String("error", err.Error()),
		)
	}
}
