package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bistiadi/portfolio/internal/handlers/testutil"
	"github.com/bistiadi/portfolio/internal/models"
)

type profilePayload struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Address   string             `json:"address"`
	Phone     string             `json:"phone"`
	PhotoPath string             `json:"photo_path"`
	Username  string             `json:"username"`
	Expertise []models.Expertise `json:"expertise"`
}

func TestProfileHandlerFirstVisitCreatesProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("visitor", "visitor@example.com", "AuthPassw0rd!", false)
	login := env.Login("visitor@example.com", "AuthPassw0rd!")

	w := env.Request(http.MethodGet, "/api/profile", nil, login.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var first profilePayload
	resp := testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &first)
	require.Equal(t, user.ID, first.UserID)
	require.Equal(t, "Budi", first.FirstName)
	require.Equal(t, "Istiadi", first.LastName)

	w = env.Request(http.MethodGet, "/api/profile", nil, login.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var second profilePayload
	resp = testutil.DecodeResponse(t, w)
	testutil.DecodeInto(t, resp.Data, &second)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, env.DB.Model(&models.Profile{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestProfileHandlerUpdateSyncsNamesAndValidatesPhone(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("editor", "editor@example.com", "AuthPassw0rd!", false)
	login := env.Login("editor@example.com", "AuthPassw0rd!")
	token := login.Tokens.AccessToken

	w := env.Request(http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var profile profilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &profile)

	w = env.Request(http.MethodPut, "/api/profiles/"+profile.ID, map[string]any{
		"first_name": "Agus",
		"last_name":  "Wibowo",
		"phone":      "+6281234567890",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var owner models.User
	require.NoError(t, env.DB.First(&owner, "id = ?", user.ID).Error)
	require.Equal(t, "Agus", owner.FirstName)
	require.Equal(t, "Wibowo", owner.LastName)

	w = env.Request(http.MethodPut, "/api/profiles/"+profile.ID, map[string]any{
		"phone": "ckjsbffbkw",
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var stored models.Profile
	require.NoError(t, env.DB.First(&stored, "id = ?", profile.ID).Error)
	require.Equal(t, "+6281234567890", stored.Phone)
}

func TestProfileHandlerVisibilityScoping(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("owner1", "owner1@example.com", "AuthPassw0rd!", false)
	env.CreateUser("owner2", "owner2@example.com", "AuthPassw0rd!", false)
	env.CreateUser("boss", "boss@example.com", "AuthPassw0rd!", true)

	login1 := env.Login("owner1@example.com", "AuthPassw0rd!")
	login2 := env.Login("owner2@example.com", "AuthPassw0rd!")
	bossLogin := env.Login("boss@example.com", "AuthPassw0rd!")

	w := env.Request(http.MethodGet, "/api/profile", nil, login1.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var profile1 profilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &profile1)

	w = env.Request(http.MethodGet, "/api/profile", nil, login2.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	// owner2 cannot see or edit owner1's profile.
	w = env.Request(http.MethodGet, "/api/profiles/"+profile1.ID, nil, login2.Tokens.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodPut, "/api/profiles/"+profile1.ID, map[string]any{
		"address": "Jl. Sudirman 1",
	}, login2.Tokens.AccessToken)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Each staff user lists only their own profile.
	w = env.Request(http.MethodGet, "/api/profiles", nil, login1.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var visible []profilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &visible)
	require.Len(t, visible, 1)
	require.Equal(t, profile1.ID, visible[0].ID)

	// The superuser sees every profile.
	w = env.Request(http.MethodGet, "/api/profiles", nil, bossLogin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &visible)
	require.Len(t, visible, 2)

	// Search narrows by the owner's email.
	w = env.Request(http.MethodGet, "/api/profiles?q=owner1", nil, bossLogin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &visible)
	require.Len(t, visible, 1)
	require.Equal(t, profile1.ID, visible[0].ID)
}

func TestProfileHandlerOwnerFieldReadOnly(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("holder", "holder@example.com", "AuthPassw0rd!", false)
	other := env.CreateUser("target", "target@example.com", "AuthPassw0rd!", false)

	login := env.Login("holder@example.com", "AuthPassw0rd!")

	w := env.Request(http.MethodGet, "/api/profile", nil, login.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	var profile profilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &profile)

	w = env.Request(http.MethodPut, "/api/profiles/"+profile.ID, map[string]any{
		"user_id": other.ID,
	}, login.Tokens.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestProfileHandlerPhotoUpload(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("shutter", "shutter@example.com", "AuthPassw0rd!", false)
	login := env.Login("shutter@example.com", "AuthPassw0rd!")
	token := login.Tokens.AccessToken

	w := env.Request(http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var profile profilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &profile)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photo", "selfie.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profiles/"+profile.ID+"/photo", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated profilePayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, rec).Data, &updated)
	require.Equal(t, "shutter/photo.jpg", updated.PhotoPath)

	download := env.Request(http.MethodGet, "/api/profiles/"+profile.ID+"/photo", nil, token)
	require.Equal(t, http.StatusOK, download.Code)
	require.Equal(t, "jpeg-bytes", download.Body.String())
}
