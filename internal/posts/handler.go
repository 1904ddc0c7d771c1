package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vuminh/blogapi/backend/internal/auth"
	"github.com/vuminh/blogapi/backend/internal/models"
	"github.com/vuminh/blogapi/backend/internal/store"
	"github.com/vuminh/blogapi/backend/internal/web"
)

const postsPerPage = 10

var validate = validator.New()

// PostStore defines the interface for post persistence.
type PostStore interface {
	Insert(ctx context.Context, post *models.Post) (primitive.ObjectID, error)
	ListPublished(ctx context.Context, offset, limit int64) ([]models.Post, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// FileStore defines the interface for cover image storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds the post HTTP handlers.
type Handler struct {
	posts PostStore
	files FileStore
}

func NewHandler(posts PostStore, files FileStore) *Handler {
	return &Handler{posts: posts, files: files}
}

// List returns one page of published posts, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 1 {
		page = p
	}
	offset := int64(page-1) * postsPerPage

	result, err := h.posts.ListPublished(r.Context(), offset, postsPerPage)
	if err != nil {
		log.Error().Err(err).Msg("list posts")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	if result == nil {
		result = []models.Post{}
	}

	web.OK(w, http.StatusOK, "List of posts", result)
}

// Get returns a single published post and bumps its view counter.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && post.Status != models.StatusPublished) {
		web.Fail(w, http.StatusNotFound, "Post not found or not published")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	if err := h.posts.IncrementViews(r.Context(), id); err != nil {
		log.Error().Err(err).Msg("increment views")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	post.Views++

	web.OK(w, http.StatusOK, "Post detail", post)
}

// Create stores a new post authored by the authenticated identity.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())
	if ident == nil {
		web.Fail(w, http.StatusForbidden, "Unauthorized")
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	status := req.Status
	if status == "" {
		status = models.StatusDraft
	}

	post := &models.Post{
		Title:      req.Title,
		Subtitle:   req.Subtitle,
		Content:    req.Content,
		Summary:    req.Summary,
		Tags:       req.Tags,
		Category:   req.Category,
		CoverImage: req.CoverImage,
		Author: models.Author{
			ID:    ident.ID,
			Email: ident.Email,
			Name:  ident.Name,
		},
	}
	post.SetStatus(status, time.Now())

	if _, err := h.posts.Insert(r.Context(), post); err != nil {
		log.Error().Err(err).Msg("insert post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	web.OK(w, http.StatusCreated, "Post created", post)
}

// Update merges the provided fields into an existing post. Only the
// author may update.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())
	if ident == nil {
		web.Fail(w, http.StatusForbidden, "Unauthorized")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	var req models.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		web.Fail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	if post.Author.ID != ident.ID {
		web.Fail(w, http.StatusForbidden, "You are not the author")
		return
	}

	req.Apply(post, time.Now())

	if err := h.posts.Update(r.Context(), post); err != nil {
		log.Error().Err(err).Msg("update post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	web.OK(w, http.StatusOK, "Post updated", post)
}

// Delete permanently removes a post and its cover object. Only the
// author may delete. Form submissions get a redirect instead of JSON.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())
	if ident == nil {
		web.Fail(w, http.StatusForbidden, "Unauthorized")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		web.Fail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	if post.Author.ID != ident.ID {
		web.Fail(w, http.StatusForbidden, "You are not the author")
		return
	}

	if post.CoverImage != "" {
		if err := h.files.Remove(r.Context(), post.CoverImage); err != nil {
			log.Error().Err(err).Str("key", post.CoverImage).Msg("remove cover")
		}
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		log.Error().Err(err).Msg("delete post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	if isFormSubmission(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	web.OK(w, http.StatusOK, "Post deleted", nil)
}

// UploadCover replaces the post's cover image. Only the author may upload.
func (h *Handler) UploadCover(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFrom(r.Context())
	if ident == nil {
		web.Fail(w, http.StatusForbidden, "Unauthorized")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		web.Fail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	if post.Author.ID != ident.ID {
		web.Fail(w, http.StatusForbidden, "You are not the author")
		return
	}

	file, header, err := r.FormFile("cover")
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "cover file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "unreadable cover file")
		return
	}

	ext := filepath.Ext(header.Filename)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		web.Fail(w, http.StatusBadRequest, "cover must be an image")
		return
	}

	key := fmt.Sprintf("covers/%s/%s%s", id.Hex(), uuid.New().String(), ext)
	if err := h.files.Upload(r.Context(), key, data, contentType); err != nil {
		log.Error().Err(err).Msg("upload cover")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	if prev := post.CoverImage; prev != "" {
		if err := h.files.Remove(r.Context(), prev); err != nil {
			log.Error().Err(err).Str("key", prev).Msg("remove old cover")
		}
	}

	post.CoverImage = key
	if err := h.posts.Update(r.Context(), post); err != nil {
		log.Error().Err(err).Msg("update post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}

	web.OK(w, http.StatusOK, "Cover updated", post)
}

// GetCover streams the cover image of a published post.
func (h *Handler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		web.Fail(w, http.StatusBadRequest, "Invalid post ID")
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && post.Status != models.StatusPublished) {
		web.Fail(w, http.StatusNotFound, "Post not found or not published")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get post")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	if post.CoverImage == "" {
		web.Fail(w, http.StatusNotFound, "No cover image")
		return
	}

	data, contentType, err := h.files.Download(r.Context(), post.CoverImage)
	if err != nil {
		log.Error().Err(err).Msg("download cover")
		web.Fail(w, http.StatusInternalServerError, "Server error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func isFormSubmission(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}
