package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/brainhub/brain-ingest/app/logic/v1"
	"github.com/brainhub/brain-ingest/app/response"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
)

const UPLOAD_FORM_FILE_KEY = "uploadFile"

type UploadFileRequest struct {
	Integration     string `form:"integration"`
	IntegrationLink string `form:"integration_link"`
	NotificationID  string `form:"notification_id"`
	BulkID          string `form:"bulk_id"`
}

func (s *HttpSrv) UploadFile(c *gin.Context) {
	var req UploadFileRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.APIError(c, errors.New("HttpSrv.UploadFile.ShouldBindQuery", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest))
		return
	}

	fh, err := c.FormFile(UPLOAD_FORM_FILE_KEY)
	if err != nil {
		response.APIError(c, errors.New("HttpSrv.UploadFile.FormFile", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest))
		return
	}

	brainID, _ := v1.InjectBrainID(c)
	args := v1.UploadArgs{
		Integration:     req.Integration,
		IntegrationLink: req.IntegrationLink,
		NotificationID:  req.NotificationID,
		BulkID:          req.BulkID,
	}
	logic := v1.NewUploadLogic(c, s.Core)

	raw, err := readFormFile(fh, func(size int64) error {
		return logic.Admit(brainID, fh.Filename, size, args)
	})
	if err != nil {
		response.APIError(c, err)
		return
	}

	result, err := logic.Upload(brainID, fh.Filename, raw, args)
	if err != nil {
		response.APIError(c, err)
		return
	}

	if lang, ok := v1.InjectLanguage(c); ok {
		result.Message = response.InjectResponseLocalizer(c).Get(lang, i18n.MESSAGE_FILE_PROCESSING_STARTED)
	}

	response.APISuccess(c, result)
}

// readFormFile 先按声明大小做准入，通过后才读入内存
func readFormFile(fh *multipart.FileHeader, admit func(size int64) error) ([]byte, error) {
	if err := admit(fh.Size); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("HttpSrv.UploadFile.Open", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, fh.Size))
	if err != nil {
		return nil, errors.New("HttpSrv.UploadFile.ReadAll", i18n.ERROR_INTERNAL, err)
	}
	return raw, nil
}
