package domain

import "time"

// DefaultDocumentTitle 是新建文档的默认标题。
const DefaultDocumentTitle = "Untitled"

// RoomMetadata 是房间上挂载的文档元数据。
type RoomMetadata struct {
	CreatorID string `json:"creatorId"` // 创建者用户 ID
	Email     string `json:"email"`     // 文档所有者邮箱，唯一标识 owner
	Title     string `json:"title"`     // 文档标题
}

// Room 表示一个协作文档房间及其访问控制列表。
type Room struct {
	ID               string                  `json:"id"`
	Metadata         RoomMetadata            `json:"metadata"`
	UsersAccesses    map[string][]Permission `json:"usersAccesses"`   // key 为用户邮箱
	DefaultAccesses  []Permission            `json:"defaultAccesses"` // 未列出用户的默认权限，保持顺序
	CreatedAt        time.Time               `json:"createdAt"`
	LastConnectionAt *time.Time              `json:"lastConnectionAt,omitempty"`
}

// IsOwner 判断 email 是否为房间所有者，比较时忽略大小写和首尾空白。
func (r *Room) IsOwner(email string) bool {
	owner := NormalizeEmail(r.Metadata.Email)
	return owner != "" && owner == NormalizeEmail(email)
}

// lookup 查找 userID 在 UsersAccesses 中对应的条目。
// 邮箱不区分大小写，先按规范化后的 key 查找，再回退到逐个比较。
func (r *Room) lookup(userID string) ([]Permission, bool) {
	key := NormalizeEmail(userID)
	if key == "" {
		return nil, false
	}
	if perms, ok := r.UsersAccesses[key]; ok {
		return perms, true
	}
	for k, perms := range r.UsersAccesses {
		if NormalizeEmail(k) == key {
			return perms, true
		}
	}
	return nil, false
}

// HasAccess 判断 userID 是否出现在 UsersAccesses 的 key 中。
func (r *Room) HasAccess(userID string) bool {
	_, ok := r.lookup(userID)
	return ok
}

// AccessOf 返回用户在房间中的访问级别。
// 用户不在 UsersAccesses 中时 ok 为 false。
func (r *Room) AccessOf(userID string) (AccessType, bool) {
	perms, ok := r.lookup(userID)
	if !ok {
		return "", false
	}
	return AccessTypeFromPermissions(perms), true
}

// RoomPatch 描述一次对房间的局部更新。
// Title 为 nil 表示不修改标题；UsersAccesses 中值为 nil 的条目表示撤销该用户的访问权限。
type RoomPatch struct {
	Title         *string
	UsersAccesses map[string][]Permission
}
