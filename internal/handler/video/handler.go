package video

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streamledger/vms-api/internal/middleware"
	"github.com/streamledger/vms-api/internal/model"
	pointService "github.com/streamledger/vms-api/internal/service/point"
	videoService "github.com/streamledger/vms-api/internal/service/video"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/httputil"
)

type Handler struct {
	videos videoService.Servicer
	points pointService.Servicer
}

func NewHandler(videos videoService.Servicer, points pointService.Servicer) *Handler {
	return &Handler{videos: videos, points: points}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	admin := r.Group("/admin/videos", auth.Authenticate(), auth.RequireAdmin())
	{
		admin.POST("", h.Upload)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
	}
	r.PUT("/admin/videos/:id/restore", auth.Authenticate(), auth.RequirePaidAdmin(), h.Restore)

	videos := r.Group("/videos", auth.Authenticate())
	{
		videos.GET("", h.List)
		videos.GET("/:id", h.Stream)
	}
}

// Upload accepts a multipart video for asynchronous processing. The file is
// staged to local temp storage before the task is enqueued, so the 202
// acknowledgment means only "accepted", not "stored".
func (h *Handler) Upload(c *gin.Context) {
	title := c.PostForm("title")
	if title == "" {
		httputil.RespondWithError(c, apperrors.BadRequest("title is required", nil))
		return
	}
	description := c.PostForm("description")

	file, header, err := openFormFile(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if file == nil {
		httputil.RespondWithError(c, apperrors.BadRequest("video file is required", nil))
		return
	}
	defer file.Close()

	admin := middleware.CurrentUser(c)
	if err := h.videos.SubmitUpload(c.Request.Context(), admin, title, description, file, header.Filename); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusAccepted, "video accepted for processing")
}

// Update changes a video's metadata and optionally replaces its file. A
// replacement file makes the whole update asynchronous.
func (h *Handler) Update(c *gin.Context) {
	videoID, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	meta := &model.VideoMetaUpdate{}
	if v, ok := c.GetPostForm("title"); ok {
		meta.Title = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		meta.Description = &v
	}

	file, header, err := openFormFile(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var reader io.Reader
	filename := ""
	if file != nil {
		defer file.Close()
		reader = file
		filename = header.Filename
	}

	admin := middleware.CurrentUser(c)
	accepted, err := h.videos.SubmitUpdate(c.Request.Context(), admin, videoID, meta, reader, filename)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if accepted {
		httputil.RespondWithMessage(c, http.StatusAccepted, "video update accepted for processing")
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "video updated")
}

// Delete soft-deletes a video owned by the admin's organization.
func (h *Handler) Delete(c *gin.Context) {
	videoID, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	admin := middleware.CurrentUser(c)
	if err := h.videos.SoftDelete(c.Request.Context(), admin, videoID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Restore brings back a soft-deleted video for a paid organization.
func (h *Handler) Restore(c *gin.Context) {
	videoID, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	admin := middleware.CurrentUser(c)
	if err := h.videos.Restore(c.Request.Context(), admin, videoID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "video restored")
}

// List returns every live video across organizations.
func (h *Handler) List(c *gin.Context) {
	videos, err := h.videos.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	out := make([]*model.VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, model.NewVideoResponse(v))
	}
	httputil.RespondWithSuccess(c, http.StatusOK, out)
}

// Stream awards the viewer's point and then serves the file. A view that
// cannot take the award lock is rejected before any bytes are sent.
func (h *Handler) Stream(c *gin.Context) {
	videoID, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	_, reader, size, contentType, err := h.videos.Stream(c.Request.Context(), videoID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	defer reader.Close()

	user := middleware.CurrentUser(c)
	if _, err := h.points.AwardViewPoint(c.Request.Context(), user.ID, videoID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, size, contentType, reader, nil)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.BadRequest("invalid video ID", err)
	}
	return id, nil
}

func openFormFile(c *gin.Context) (multipart.File, *multipart.FileHeader, error) {
	header, err := c.FormFile("file")
	if err != nil {
		// A form without a file part is a metadata-only request.
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil, nil
		}
		return nil, nil, apperrors.BadRequest("invalid multipart form", err)
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, apperrors.BadRequest("failed to read uploaded file", err)
	}
	return file, header, nil
}
