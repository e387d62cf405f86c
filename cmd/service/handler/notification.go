package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/brainhub/brain-ingest/app/logic/v1"
	"github.com/brainhub/brain-ingest/app/response"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

type GetNotificationRequest struct {
	ID string `uri:"id" binding:"required"`
}

func (s *HttpSrv) GetNotification(c *gin.Context) {
	var req GetNotificationRequest
	if err := utils.BindUriWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	notification, err := v1.NewNotificationLogic(c, s.Core).GetNotification(req.ID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, notification)
}
