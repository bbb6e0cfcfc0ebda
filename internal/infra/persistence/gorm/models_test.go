package gormpersistence

import (
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Index24/live-docs/internal/domain"
)

func TestRoomModel_RoundTrip(t *testing.T) {
	now := time.Now()
	room := &domain.Room{
		ID:       "room-1",
		Metadata: domain.RoomMetadata{CreatorID: "7", Email: "owner@example.com", Title: "Untitled"},
		UsersAccesses: map[string][]domain.Permission{
			"owner@example.com":  domain.AccessEditor.Permissions(),
			"viewer@example.com": domain.AccessViewer.Permissions(),
		},
		DefaultAccesses:  []domain.Permission{domain.PermissionRoomRead, domain.PermissionRoomPresenceWrite},
		LastConnectionAt: &now,
	}

	m, err := newRoomModel(room)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", m.OwnerEmail)
	assert.Len(t, m.Accesses, 2)
	for _, a := range m.Accesses {
		assert.Equal(t, "room-1", a.RoomID)
	}

	back, err := m.toDomain()
	require.NoError(t, err)
	assert.Equal(t, room.Metadata, back.Metadata)
	assert.Equal(t, room.UsersAccesses, back.UsersAccesses)
	assert.Equal(t, room.DefaultAccesses, back.DefaultAccesses, "默认权限应保持顺序")
}

func TestRoomModel_EmptyDefaults(t *testing.T) {
	m, err := newRoomModel(&domain.Room{ID: "r", UsersAccesses: map[string][]domain.Permission{}})
	require.NoError(t, err)
	assert.Equal(t, "[]", m.DefaultAccesses)

	back, err := m.toDomain()
	require.NoError(t, err)
	assert.NotNil(t, back.DefaultAccesses)
	assert.Empty(t, back.DefaultAccesses)
	assert.NotNil(t, back.UsersAccesses)
}

func TestRoomModel_CorruptPermissions(t *testing.T) {
	m := &RoomModel{ID: "r", Accesses: []RoomAccessModel{{RoomID: "r", UserID: "u", Permissions: "not-json"}}}
	_, err := m.toDomain()
	assert.Error(t, err)
}

func TestNotificationModel_RoundTrip(t *testing.T) {
	n := domain.NewDocumentAccessNotification("subj", "bob@example.com", "room-1", domain.AccessViewer,
		domain.UserInfo{Name: "Alice", Email: "alice@example.com"})
	n.ID = "n-1"

	m, err := newNotificationModel(&n)
	require.NoError(t, err)
	back, err := m.toDomain()
	require.NoError(t, err)
	assert.Equal(t, n.ActivityData, back.ActivityData)
	assert.Equal(t, n.SubjectID, back.SubjectID)
	assert.Equal(t, n.Kind, back.Kind)
}

func TestIsDuplicateEntryError(t *testing.T) {
	assert.True(t, isDuplicateEntryError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'idx'"}))
	assert.False(t, isDuplicateEntryError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.True(t, isDuplicateEntryError(errors.New("UNIQUE constraint failed: rooms.id")))
	assert.False(t, isDuplicateEntryError(errors.New("connection refused")))
	assert.False(t, isDuplicateEntryError(nil))
}
