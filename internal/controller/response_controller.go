package controller

import (
	"errors"

	"formpulse_backend/internal/service"
	"formpulse_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ResponseController struct {
	Service   *service.ResponseService
	Analytics *service.AnalyticsService
}

func NewResponseController(svc *service.ResponseService, analytics *service.AnalyticsService) *ResponseController {
	return &ResponseController{Service: svc, Analytics: analytics}
}

// @Summary 开始作答
// @Description 创建作答会话并返回初始的题目可见性状态
// @Tags 响应
// @Accept json
// @Produce json
// @Param id path string true "问卷ID"
// @Param body body service.StartResponseRequest true "会话元数据"
// @Success 201 {object} util.Response
// @Router /api/questionnaires/{id}/responses [post]
func (c *ResponseController) Start(ctx *gin.Context) {
	var req service.StartResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Metadata.IPAddress == "" {
		req.Metadata.IPAddress = ctx.ClientIP()
	}
	if req.Metadata.UserAgent == "" {
		req.Metadata.UserAgent = ctx.Request.UserAgent()
	}

	resp, state, err := c.Service.Start(ctx.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrQuestionnaireNotOpen):
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{"response": resp, "state": state})
}

// @Summary 提交单题答案
// @Description 校验答案并重新求值条件逻辑，返回更新后的题目状态
// @Tags 响应
// @Accept json
// @Produce json
// @Param id path string true "响应ID"
// @Param body body service.SubmitAnswerRequest true "答案"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/responses/{id}/answers [put]
func (c *ResponseController) Answer(ctx *gin.Context) {
	var req service.SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.Service.Answer(ctx.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrResponseAlreadyClosed),
			errors.Is(err, util.ErrQuestionNotAnswerable):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrQuestionNotFound):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrAnswerInvalid):
			util.UnprocessableEntity(ctx, outcome.Validation.Errors)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, outcome)
}

// @Summary 上传文件题附件
// @Description 校验并存储 file_upload 题型的附件，文件描述与访问 URL 作为该题答案记录
// @Tags 响应
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "响应ID"
// @Param questionId formData string true "题目ID"
// @Param file formData file true "附件"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/responses/{id}/files [post]
func (c *ResponseController) UploadFile(ctx *gin.Context) {
	questionID := ctx.PostForm("questionId")
	if questionID == "" {
		util.BadRequest(ctx, "questionId is required")
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	defer src.Close()

	outcome, err := c.Service.UploadFile(ctx.Request.Context(), ctx.Param("id"), service.UploadFileRequest{
		QuestionID:  questionID,
		Filename:    file.Filename,
		Size:        file.Size,
		ContentType: file.Header.Get("Content-Type"),
		Reader:      src,
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrResponseAlreadyClosed),
			errors.Is(err, util.ErrQuestionNotAnswerable):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrQuestionNotFound),
			errors.Is(err, util.ErrQuestionNotFileUpload):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrAnswerInvalid):
			util.UnprocessableEntity(ctx, outcome.Validation.Errors)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, outcome)
}

// @Summary 提交整份响应
// @Description 最终求值必填集合，缺答整体拒绝；通过后评分并执行质量检查
// @Tags 响应
// @Produce json
// @Param id path string true "响应ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/responses/{id}/submit [post]
func (c *ResponseController) Submit(ctx *gin.Context) {
	outcome, err := c.Service.Submit(ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrResponseAlreadyClosed):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrRequiredAnswersMissing):
			util.UnprocessableEntity(ctx, gin.H{"missing": outcome.Missing})
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	// 报表缓存里的数据已过期
	c.Analytics.InvalidateCache(ctx.Request.Context(), outcome.Response.QuestionnaireID)

	util.Success(ctx, outcome.Response)
}

// @Summary 放弃作答
// @Tags 响应
// @Produce json
// @Param id path string true "响应ID"
// @Success 200 {object} util.Response
// @Router /api/responses/{id}/abandon [post]
func (c *ResponseController) Abandon(ctx *gin.Context) {
	if err := c.Service.Abandon(ctx.Param("id")); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrResponseAlreadyClosed):
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// @Summary 获取响应详情
// @Tags 响应
// @Produce json
// @Param id path string true "响应ID"
// @Success 200 {object} util.Response
// @Router /api/responses/{id} [get]
func (c *ResponseController) Get(ctx *gin.Context) {
	resp, err := c.Service.Get(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// @Summary 响应列表
// @Tags 响应
// @Produce json
// @Param id path string true "问卷ID"
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/questionnaires/{id}/responses [get]
func (c *ResponseController) List(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"))

	rs, total, err := c.Service.List(ctx.Param("id"), ctx.Query("status"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: rs, Total: total, Page: page, Limit: limit})
}

// @Summary 重新评估响应质量
// @Description 重跑质量启发式并整体替换旧的标记列表
// @Tags 响应
// @Produce json
// @Param id path string true "响应ID"
// @Success 200 {object} util.Response
// @Router /api/responses/{id}/quality [post]
func (c *ResponseController) ReassessQuality(ctx *gin.Context) {
	resp, err := c.Service.ReassessQuality(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, resp.QualityChecks)
}
