package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Index24/live-docs/internal/domain"
	handlerhttp "github.com/Index24/live-docs/internal/handler/http"
	"github.com/Index24/live-docs/internal/middleware"
	"github.com/Index24/live-docs/internal/service"
)

const (
	ownerEmail  = "owner@example.com"
	editorEmail = "editor@example.com"
	viewerEmail = "viewer@example.com"
)

type mockDocs struct{ mock.Mock }

func (m *mockDocs) room(args mock.Arguments) (*domain.Room, error) {
	r, _ := args.Get(0).(*domain.Room)
	return r, args.Error(1)
}

func (m *mockDocs) CreateDocument(ctx context.Context, ownerID, email string) (*domain.Room, error) {
	return m.room(m.Called(ctx, ownerID, email))
}

func (m *mockDocs) GetDocument(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	return m.room(m.Called(ctx, roomID, userID))
}

func (m *mockDocs) GetDocuments(ctx context.Context, email string) ([]domain.Room, error) {
	args := m.Called(ctx, email)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Error(1)
}

func (m *mockDocs) UpdateDocument(ctx context.Context, roomID, title string) (*domain.Room, error) {
	return m.room(m.Called(ctx, roomID, title))
}

func (m *mockDocs) UpdateDocumentAccess(ctx context.Context, roomID, email string, t domain.AccessType, by domain.UserInfo) (*domain.Room, error) {
	return m.room(m.Called(ctx, roomID, email, t, by))
}

func (m *mockDocs) RemoveCollaborator(ctx context.Context, roomID, email string) (*domain.Room, error) {
	return m.room(m.Called(ctx, roomID, email))
}

func (m *mockDocs) DeleteDocument(ctx context.Context, roomID string) (string, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) CurrentUser(ctx context.Context, userID uint) (domain.UserInfo, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.UserInfo), args.Error(1)
}

func sampleRoom() *domain.Room {
	return &domain.Room{
		ID:       "room-1",
		Metadata: domain.RoomMetadata{CreatorID: "1", Email: ownerEmail, Title: "Plan"},
		UsersAccesses: map[string][]domain.Permission{
			ownerEmail:  domain.AccessEditor.Permissions(),
			editorEmail: domain.AccessEditor.Permissions(),
			viewerEmail: domain.AccessViewer.Permissions(),
		},
		DefaultAccesses: []domain.Permission{},
	}
}

// newRouter 用一个伪造的认证中间件代替 JWT 校验
func newRouter(docs *mockDocs, users *mockUsers, email string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlerhttp.NewDocumentHandler(docs, users)
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uint(1))
		c.Set(middleware.ContextEmailKey, email)
		c.Next()
	})
	api.POST("/documents", h.CreateDocument)
	api.GET("/documents", h.ListDocuments)
	api.GET("/documents/:roomId", h.GetDocument)
	api.PATCH("/documents/:roomId", h.UpdateTitle)
	api.DELETE("/documents/:roomId", h.DeleteDocument)
	api.POST("/documents/:roomId/access", h.ShareDocument)
	api.DELETE("/documents/:roomId/collaborators/:email", h.RemoveCollaborator)
	api.GET("/access-types", h.AccessTypes)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDocumentHandler_Create(t *testing.T) {
	docs, users := new(mockDocs), new(mockUsers)
	docs.On("CreateDocument", mock.Anything, "1", ownerEmail).Return(&domain.Room{
		ID:              "room-9",
		Metadata:        domain.RoomMetadata{CreatorID: "1", Email: ownerEmail, Title: domain.DefaultDocumentTitle},
		UsersAccesses:   map[string][]domain.Permission{ownerEmail: domain.AccessEditor.Permissions()},
		DefaultAccesses: []domain.Permission{},
	}, nil).Once()

	w := do(newRouter(docs, users, ownerEmail), http.MethodPost, "/api/documents", "")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/documents/room-9", w.Header().Get("Location"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Untitled", body["title"])
	assert.Equal(t, "editor", body["currentUserType"])
	docs.AssertExpectations(t)
}

func TestDocumentHandler_GetDocument_ErrorMapping(t *testing.T) {
	testCases := []struct {
		err  error
		code int
	}{
		{service.ErrAccessDenied, http.StatusForbidden},
		{service.ErrRoomNotFound, http.StatusNotFound},
		{service.ErrInternalServer, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			docs := new(mockDocs)
			docs.On("GetDocument", mock.Anything, "room-1", viewerEmail).Return(nil, tc.err).Once()

			w := do(newRouter(docs, new(mockUsers), viewerEmail), http.MethodGet, "/api/documents/room-1", "")
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestDocumentHandler_ListDocuments_EmptyIsArray(t *testing.T) {
	docs := new(mockDocs)
	docs.On("GetDocuments", mock.Anything, viewerEmail).Return([]domain.Room{}, nil).Once()

	w := do(newRouter(docs, new(mockUsers), viewerEmail), http.MethodGet, "/api/documents", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":[]}`, w.Body.String())
}

func TestDocumentHandler_UpdateTitle_RequiresEditor(t *testing.T) {
	docs := new(mockDocs)
	docs.On("GetDocument", mock.Anything, "room-1", viewerEmail).Return(sampleRoom(), nil).Once()

	w := do(newRouter(docs, new(mockUsers), viewerEmail), http.MethodPatch, "/api/documents/room-1", `{"title":"New"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	docs.AssertNotCalled(t, "UpdateDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_ShareDocument_Success(t *testing.T) {
	docs, users := new(mockDocs), new(mockUsers)
	granter := domain.UserInfo{ID: 1, Name: "Ed", Email: editorEmail}
	updated := sampleRoom()
	updated.UsersAccesses["new@example.com"] = domain.AccessEditor.Permissions()

	docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()
	users.On("CurrentUser", mock.Anything, uint(1)).Return(granter, nil).Once()
	docs.On("UpdateDocumentAccess", mock.Anything, "room-1", "new@example.com", domain.AccessEditor, granter).
		Return(updated, nil).Once()

	w := do(newRouter(docs, users, editorEmail), http.MethodPost, "/api/documents/room-1/access",
		`{"email":"new@example.com","userType":"editor"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "editor", body["userType"])
	assert.NotContains(t, body, "warning")
	docs.AssertExpectations(t)
}

func TestDocumentHandler_ShareDocument_InvalidUserType(t *testing.T) {
	docs, users := new(mockDocs), new(mockUsers)
	docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()
	users.On("CurrentUser", mock.Anything, uint(1)).Return(domain.UserInfo{}, nil).Once()

	w := do(newRouter(docs, users, editorEmail), http.MethodPost, "/api/documents/room-1/access",
		`{"email":"new@example.com","userType":"admin"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	docs.AssertNotCalled(t, "UpdateDocumentAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentHandler_ShareDocument_NotificationFailed(t *testing.T) {
	docs, users := new(mockDocs), new(mockUsers)
	docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()
	users.On("CurrentUser", mock.Anything, uint(1)).Return(domain.UserInfo{}, service.ErrUserNotFound).Once()
	docs.On("UpdateDocumentAccess", mock.Anything, "room-1", viewerEmail, domain.AccessEditor,
		domain.UserInfo{ID: 1, Email: editorEmail}).
		Return(sampleRoom(), fmt.Errorf("%w: redis down", service.ErrNotificationFailed)).Once()

	w := do(newRouter(docs, users, editorEmail), http.MethodPost, "/api/documents/room-1/access",
		`{"email":"viewer@example.com","userType":"editor"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "warning")
	docs.AssertExpectations(t)
}

func TestDocumentHandler_ShareDocument_Rejections(t *testing.T) {
	t.Run("viewer cannot share", func(t *testing.T) {
		docs := new(mockDocs)
		docs.On("GetDocument", mock.Anything, "room-1", viewerEmail).Return(sampleRoom(), nil).Once()

		w := do(newRouter(docs, new(mockUsers), viewerEmail), http.MethodPost, "/api/documents/room-1/access",
			`{"email":"new@example.com","userType":"viewer"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("owner access cannot change", func(t *testing.T) {
		docs := new(mockDocs)
		docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()

		w := do(newRouter(docs, new(mockUsers), editorEmail), http.MethodPost, "/api/documents/room-1/access",
			`{"email":"owner@example.com","userType":"viewer"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing email", func(t *testing.T) {
		w := do(newRouter(new(mockDocs), new(mockUsers), editorEmail), http.MethodPost, "/api/documents/room-1/access",
			`{"userType":"viewer"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDocumentHandler_RemoveCollaborator_Owner(t *testing.T) {
	docs := new(mockDocs)
	docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()
	docs.On("RemoveCollaborator", mock.Anything, "room-1", ownerEmail).Return(nil, service.ErrCannotRemoveOwner).Once()

	w := do(newRouter(docs, new(mockUsers), editorEmail), http.MethodDelete,
		"/api/documents/room-1/collaborators/"+ownerEmail, "")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentHandler_OwnerEmailCaseVariants(t *testing.T) {
	t.Run("share rejects owner in another case", func(t *testing.T) {
		docs := new(mockDocs)
		docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()

		w := do(newRouter(docs, new(mockUsers), editorEmail), http.MethodPost, "/api/documents/room-1/access",
			`{"email":"Owner@Example.COM","userType":"viewer"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		docs.AssertNotCalled(t, "UpdateDocumentAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("remove passes the normalized email", func(t *testing.T) {
		docs := new(mockDocs)
		docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()
		docs.On("RemoveCollaborator", mock.Anything, "room-1", ownerEmail).Return(nil, service.ErrCannotRemoveOwner).Once()

		w := do(newRouter(docs, new(mockUsers), editorEmail), http.MethodDelete,
			"/api/documents/room-1/collaborators/OWNER@Example.com", "")

		assert.Equal(t, http.StatusConflict, w.Code)
		docs.AssertExpectations(t)
	})

	t.Run("caller identity is normalized", func(t *testing.T) {
		docs := new(mockDocs)
		docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()

		w := do(newRouter(docs, new(mockUsers), "Editor@Example.com"), http.MethodGet, "/api/documents/room-1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		docs.AssertExpectations(t)
	})
}

func TestDocumentHandler_DeleteDocument(t *testing.T) {
	docs := new(mockDocs)
	docs.On("GetDocument", mock.Anything, "room-1", ownerEmail).Return(sampleRoom(), nil).Once()
	docs.On("DeleteDocument", mock.Anything, "room-1").Return("/", nil).Once()

	w := do(newRouter(docs, new(mockUsers), ownerEmail), http.MethodDelete, "/api/documents/room-1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.JSONEq(t, `{"redirect":"/"}`, w.Body.String())
}

func TestDocumentHandler_DeleteDocument_NonOwner(t *testing.T) {
	docs := new(mockDocs)
	docs.On("GetDocument", mock.Anything, "room-1", editorEmail).Return(sampleRoom(), nil).Once()

	w := do(newRouter(docs, new(mockUsers), editorEmail), http.MethodDelete, "/api/documents/room-1", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	docs.AssertNotCalled(t, "DeleteDocument", mock.Anything, mock.Anything)
}

func TestDocumentHandler_AccessTypes(t *testing.T) {
	w := do(newRouter(new(mockDocs), new(mockUsers), viewerEmail), http.MethodGet, "/api/access-types", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"options":[{"value":"viewer","label":"can view"},{"value":"editor","label":"can edit"}]}`, w.Body.String())
}
