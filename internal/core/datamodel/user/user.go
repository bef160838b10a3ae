package user

import "time"

type User struct {
	ID           string     `gorm:"column:id;primaryKey;size:36"`
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	Name         string     `gorm:"column:name;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Role         string     `gorm:"column:role;size:32;not null;index"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Permissions []UserPermission `gorm:"foreignKey:UserID"`
}

func (User) TableName() string { return "users" }

type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string { return "permissions" }

type UserPermission struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       string    `gorm:"column:user_id;size:36;not null;uniqueIndex:idx_user_permission"`
	PermissionID int64     `gorm:"column:permission_id;not null;uniqueIndex:idx_user_permission"`
	GrantedBy    *string   `gorm:"column:granted_by;size:36"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`

	Permission Permission `gorm:"foreignKey:PermissionID"`
}

func (UserPermission) TableName() string { return "user_permissions" }

// Session maps an issued token to its owner until ExpiresAt.
type Session struct {
	Token     string    `gorm:"column:token;primaryKey;size:512"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Session) TableName() string { return "sessions" }

// PermissionNames flattens the preloaded grants into their flag names.
func (u *User) PermissionNames() []string {
	names := make([]string, 0, len(u.Permissions))
	for _, up := range u.Permissions {
		if up.Permission.Name != "" {
			names = append(names, up.Permission.Name)
		}
	}
	return names
}
