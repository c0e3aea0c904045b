package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// TenantID records the tenant identifier under the key "tenant_id".
func TenantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tenant_id", id)
}

// RoleID records a role identifier under the key "role_id".
func RoleID(id int64) slog.Attr {
	return slog.Int64("role_id", id)
}

// PermissionKey records a permission key under the key "permission_key".
func PermissionKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("permission_key", key)
}

// MenuKey records a menu entry key under the key "menu_key".
func MenuKey(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("menu_key", key)
}
