package v1

import (
	"context"
	"database/sql"
	stderrors "errors"
	"net/http"

	"github.com/brainhub/brain-ingest/app/core"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/types"
)

type NotificationGetter interface {
	// Get returns sql.ErrNoRows when the notification does not exist.
	Get(ctx context.Context, id string) (*types.Notification, error)
}

type NotificationLogic struct {
	UserInfo
	ctx           context.Context
	notifications NotificationGetter
}

func NewNotificationLogic(ctx context.Context, core *core.Core) *NotificationLogic {
	return NewNotificationLogicWithStore(ctx, core.Store().NotificationStore())
}

func NewNotificationLogicWithStore(ctx context.Context, notifications NotificationGetter) *NotificationLogic {
	return &NotificationLogic{
		ctx:           ctx,
		notifications: notifications,
		UserInfo:      SetupUserInfo(ctx),
	}
}

// GetNotification returns a notification owned by the current user.
func (l *NotificationLogic) GetNotification(id string) (*types.Notification, error) {
	data, err := l.notifications.Get(l.ctx, id)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("NotificationLogic.GetNotification.NotificationStore.Get", i18n.ERROR_INTERNAL, err)
	}

	if data == nil || data.UserID != l.GetUserInfo().User {
		return nil, errors.New("NotificationLogic.GetNotification.nil", i18n.ERROR_NOT_FOUND, nil).Code(http.StatusNotFound)
	}
	return data, nil
}
