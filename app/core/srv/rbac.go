package srv

import (
	"github.com/mikespook/gorbac/v2"
	"github.com/samber/lo"

	"github.com/brainhub/brain-ingest/pkg/types"
)

const (
	// 定义权限ID
	PermissionOwn  = "own"
	PermissionEdit = "edit"
	PermissionView = "view"
)

func SetupRBACSrv() *RBACSrv {
	rbac := gorbac.New()

	pOwn := gorbac.NewStdPermission(PermissionOwn)
	pEdit := gorbac.NewStdPermission(PermissionEdit)
	pView := gorbac.NewStdPermission(PermissionView)

	roleOwner := gorbac.NewStdRole(types.BRAIN_ROLE_OWNER)
	roleOwner.Assign(pOwn)

	roleEditor := gorbac.NewStdRole(types.BRAIN_ROLE_EDITOR)
	roleEditor.Assign(pEdit)

	roleViewer := gorbac.NewStdRole(types.BRAIN_ROLE_VIEWER)
	roleViewer.Assign(pView)

	rbac.Add(roleOwner)
	rbac.Add(roleEditor)
	rbac.Add(roleViewer)

	// 设置角色继承关系
	rbac.SetParent(types.BRAIN_ROLE_EDITOR, types.BRAIN_ROLE_VIEWER)
	rbac.SetParent(types.BRAIN_ROLE_OWNER, types.BRAIN_ROLE_EDITOR)

	return &RBACSrv{
		rbac: rbac,
	}
}

type RBACSrv struct {
	rbac *gorbac.RBAC
}

// CheckPermission 检查角色是否有某权限
func (a *RBACSrv) CheckPermission(roleID, permissionID string) bool {
	return a.rbac.IsGranted(roleID, gorbac.NewStdPermission(permissionID), nil)
}

// HasAnyRole reports whether role is one of required or inherits one of them.
func (a *RBACSrv) HasAnyRole(role string, required []string) bool {
	if role == "" {
		return false
	}
	if lo.Contains(required, role) {
		return true
	}
	for _, r := range required {
		if a.inherits(role, r) {
			return true
		}
	}
	return false
}

// inherits walks the parent chain of role looking for target.
func (a *RBACSrv) inherits(role, target string) bool {
	seen := map[string]bool{}
	queue := []string{role}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		parents, err := a.rbac.GetParents(cur)
		if err != nil {
			continue
		}
		for _, p := range parents {
			if p == target {
				return true
			}
			queue = append(queue, p)
		}
	}
	return false
}
