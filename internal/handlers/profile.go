package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bistiadi/portfolio/internal/middleware"
	"github.com/bistiadi/portfolio/internal/models"
	"github.com/bistiadi/portfolio/internal/services"
	"github.com/bistiadi/portfolio/internal/storage"
	"github.com/bistiadi/portfolio/pkg/errors"
	"github.com/bistiadi/portfolio/pkg/response"
)

// maxPhotoSize bounds profile photo uploads.
const maxPhotoSize = 5 << 20

// ProfileHandler serves the authenticated user's own profile plus the
// admin-facing profile collection.
type ProfileHandler struct {
	profiles *services.ProfileService
	photos   storage.PhotoStore
}

func NewProfileHandler(profiles *services.ProfileService, photos storage.PhotoStore) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, photos: photos}
}

type updateProfileRequest struct {
	UserID    *string   `json:"user_id" validate:"omitempty,uuid4"`
	FirstName *string   `json:"first_name" validate:"omitempty,max=20"`
	LastName  *string   `json:"last_name" validate:"omitempty,max=20"`
	Address   *string   `json:"address" validate:"omitempty,max=100"`
	Phone     *string   `json:"phone" validate:"omitempty,max=15"`
	Latitude  *float64  `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64  `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	// ClearLocation removes the stored point; it wins over the coordinates.
	ClearLocation bool      `json:"clear_location"`
	ExpertiseIDs  *[]string `json:"expertise_ids" validate:"omitempty,dive,uuid4"`
}

func profilePayload(profile *models.Profile) gin.H {
	payload := gin.H{
		"id":         profile.ID,
		"user_id":    profile.UserID,
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"address":    profile.Address,
		"phone":      profile.Phone,
		"photo_path": profile.PhotoPath,
		"expertise":  profile.Expertise,
		"created_at": profile.CreatedAt,
		"updated_at": profile.UpdatedAt,
	}
	if profile.HasLocation() {
		payload["latitude"] = *profile.Latitude
		payload["longitude"] = *profile.Longitude
	}
	if profile.User != nil {
		payload["username"] = profile.User.Username
		payload["email"] = profile.User.Email
	}
	return payload
}

// GET /api/profile
//
// Returns the caller's profile, creating it on first visit.
func (h *ProfileHandler) GetOwn(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.GetOrCreate(requestContext(c), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profilePayload(profile))
}

// PUT /api/profiles/:id
func (h *ProfileHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.profiles.Update(requestContext(c), user, c.Param("id"), services.UpdateProfileInput{
		UserID:        req.UserID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Address:       req.Address,
		Phone:         req.Phone,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ClearLocation: req.ClearLocation,
		ExpertiseIDs:  req.ExpertiseIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profilePayload(profile))
}

// GET /api/profiles/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.GetVisible(requestContext(c), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profilePayload(profile))
}

// GET /api/profiles
//
// Lists the profiles visible to the caller: all of them for superusers,
// only their own otherwise. The optional q parameter searches name, phone
// and owner email.
func (h *ProfileHandler) ListVisible(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profiles, err := h.profiles.Visible(requestContext(c), user, c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := make([]gin.H, 0, len(profiles))
	for i := range profiles {
		payload = append(payload, profilePayload(&profiles[i]))
	}
	response.Success(c, http.StatusOK, payload)
}

// POST /api/profiles/:id/photo
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.GetVisible(requestContext(c), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if profile.User == nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, errors.NewBadRequest("photo file is required"))
		return
	}
	if file.Size > maxPhotoSize {
		response.Error(c, errors.NewBadRequest("photo exceeds the 5MB limit"))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}
	defer src.Close()

	path, err := h.photos.Save(requestContext(c), profile.User.Username, file.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.profiles.SetPhoto(requestContext(c), user, profile.ID, path)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profilePayload(updated))
}

// GET /api/profiles/:id/photo
func (h *ProfileHandler) DownloadPhoto(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	profile, err := h.profiles.GetVisible(requestContext(c), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if profile.PhotoPath == "" {
		response.Error(c, errors.ErrNotFound)
		return
	}

	info, err := h.photos.Stat(requestContext(c), profile.PhotoPath)
	if err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	reader, err := h.photos.Open(requestContext(c), profile.PhotoPath)
	if err != nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, info.Size, "application/octet-stream", reader, nil)
}
