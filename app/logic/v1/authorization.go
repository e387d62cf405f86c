package v1

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/brainhub/brain-ingest/app/core/srv"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/types"
)

var (
	// 上传/删除需要的角色
	WriteRoles = []string{types.BRAIN_ROLE_EDITOR, types.BRAIN_ROLE_OWNER}
	// 查看需要的角色
	ReadRoles = []string{types.BRAIN_ROLE_VIEWER, types.BRAIN_ROLE_EDITOR, types.BRAIN_ROLE_OWNER}
)

// Authorizer checks that a user holds one of the required roles on a brain.
type Authorizer interface {
	ValidateBrainAuthorization(ctx context.Context, brainID, userID string, requiredRoles []string) error
}

type BrainUserGetter interface {
	GetBrainUser(ctx context.Context, brainID, userID string) (*types.BrainUser, error)
}

type BrainAuthorizer struct {
	users BrainUserGetter
	rbac  *srv.RBACSrv
}

func NewBrainAuthorizer(users BrainUserGetter, rbac *srv.RBACSrv) *BrainAuthorizer {
	return &BrainAuthorizer{
		users: users,
		rbac:  rbac,
	}
}

func (a *BrainAuthorizer) ValidateBrainAuthorization(ctx context.Context, brainID, userID string, requiredRoles []string) error {
	user, err := a.users.GetBrainUser(ctx, brainID, userID)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return errors.New("BrainAuthorizer.BrainUserStore.GetBrainUser", i18n.ERROR_INTERNAL, err)
	}

	if user == nil || !a.rbac.HasAnyRole(user.Role, requiredRoles) {
		return errors.New("BrainAuthorizer.ValidateBrainAuthorization", i18n.ERROR_PERMISSION_DENIED,
			fmt.Errorf("%w: user %s on brain %s requires one of %v", errors.ErrForbidden, userID, brainID, requiredRoles)).
			Code(http.StatusForbidden)
	}
	return nil
}
