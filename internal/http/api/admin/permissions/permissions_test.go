package permissions

import (
	"testing"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/security"
)

func TestDefinitionMapIncludesAdminRoutes(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	requiredKeys := []string{
		"GET /api/admin/sermons",
		"DELETE /api/admin/sermons/:id",
		"DELETE /api/admin/sermons",
		"POST /api/admin/sermons/generate",
		"GET /api/admin/prayers",
		"DELETE /api/admin/prayers/:id",
		"POST /api/admin/posts/generate",
		"GET /api/admin/devotionals",
		"POST /api/admin/devotionals/generate",
		"POST /api/admin/devotionals/generate-ahead",
		"DELETE /api/admin/devotionals/:id",
	}

	for _, key := range requiredKeys {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, ok := definitionMap[key]; !ok {
				t.Fatalf("DefinitionMap() missing permission key %q", key)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	bulk := definitionMap["DELETE /api/admin/sermons"]
	single := definitionMap["DELETE /api/admin/sermons/:id"]

	if !Allowed(security.RoleSuper, bulk) {
		t.Fatalf("super must be allowed to bulk delete")
	}
	if Allowed(security.RoleSite, bulk) {
		t.Fatalf("site must not be allowed to bulk delete")
	}
	if !Allowed(security.RoleSite, single) {
		t.Fatalf("site must be allowed to delete one sermon")
	}
	if Allowed(security.Role("guest"), single) {
		t.Fatalf("unknown roles must be denied")
	}
}
