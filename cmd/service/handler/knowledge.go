package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/brainhub/brain-ingest/app/logic/v1"
	"github.com/brainhub/brain-ingest/app/response"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

type GetKnowledgeRequest struct {
	ID string `uri:"id" binding:"required"`
}

func (s *HttpSrv) GetKnowledge(c *gin.Context) {
	var req GetKnowledgeRequest
	if err := utils.BindUriWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	brainID, _ := v1.InjectBrainID(c)
	knowledge, err := v1.NewKnowledgeLogic(c, s.Core).GetKnowledge(brainID, req.ID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, knowledge)
}

type ListKnowledgeRequest struct {
	Status   string `json:"status" form:"status"`
	Page     uint64 `json:"page" form:"page" binding:"required"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"required,lte=50"`
}

type ListKnowledgeResponse struct {
	List  []*types.Knowledge `json:"list"`
	Total uint64             `json:"total"`
}

func (s *HttpSrv) ListKnowledge(c *gin.Context) {
	var req ListKnowledgeRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	brainID, _ := v1.InjectBrainID(c)
	list, total, err := v1.NewKnowledgeLogic(c, s.Core).ListKnowledges(brainID, types.KnowledgeStatus(req.Status), req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, ListKnowledgeResponse{
		List:  list,
		Total: total,
	})
}

type DeleteKnowledgeRequest struct {
	ID string `uri:"id" binding:"required"`
}

func (s *HttpSrv) DeleteKnowledge(c *gin.Context) {
	var req DeleteKnowledgeRequest
	if err := utils.BindUriWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	brainID, _ := v1.InjectBrainID(c)
	if err := v1.NewKnowledgeLogic(c, s.Core).Delete(brainID, req.ID); err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, nil)
}

func (s *HttpSrv) ListBrainFiles(c *gin.Context) {
	brainID, _ := v1.InjectBrainID(c)
	files, err := v1.NewKnowledgeLogic(c, s.Core).ListFiles(brainID)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, files)
}
