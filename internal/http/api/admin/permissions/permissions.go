// Package permissions declares the admin routes and the roles allowed on each.
package permissions

import (
	"strings"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
)

// Definition describes one admin route.
type Definition struct {
	Key    string
	Method string
	Path   string
	Label  string
	Module string
	// SuperOnly restricts the route to the super role.
	SuperOnly bool
}

var definitions = []Definition{
	define("GET", "/api/admin/permissions", "List permissions", "System", false),
	define("GET", "/api/admin/sermons", "List sermons", "Sermons", false),
	define("POST", "/api/admin/sermons/generate", "Generate sermon", "Sermons", false),
	define("DELETE", "/api/admin/sermons/:id", "Delete sermon", "Sermons", false),
	define("DELETE", "/api/admin/sermons", "Delete all sermons", "Sermons", true),
	define("GET", "/api/admin/devotionals", "List devotionals", "Devotionals", false),
	define("POST", "/api/admin/devotionals/generate", "Generate devotional", "Devotionals", false),
	define("POST", "/api/admin/devotionals/generate-ahead", "Generate upcoming devotionals", "Devotionals", false),
	define("DELETE", "/api/admin/devotionals/:id", "Delete devotional", "Devotionals", false),
	define("GET", "/api/admin/prayers", "List prayer log", "Prayers", false),
	define("DELETE", "/api/admin/prayers/:id", "Delete prayer log entry", "Prayers", false),
	define("GET", "/api/admin/posts", "List posts", "Posts", false),
	define("POST", "/api/admin/posts", "Create post", "Posts", false),
	define("POST", "/api/admin/posts/generate", "Generate post", "Posts", false),
	define("DELETE", "/api/admin/posts/:id", "Delete post", "Posts", false),
}

func define(method, path, label, module string, superOnly bool) Definition {
	return Definition{Key: Key(method, path), Method: method, Path: path, Label: label, Module: module, SuperOnly: superOnly}
}

// Key builds the lookup key for a method and gin route path.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns a copy of every definition.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes the definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}

// Allowed reports whether role may call the route def.
func Allowed(role security.Role, def Definition) bool {
	if !role.Valid() {
		return false
	}
	if def.SuperOnly {
		return role == security.RoleSuper
	}
	return true
}
