package controller

import (
	"errors"

	"formpulse_backend/internal/service"
	"formpulse_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type QuestionnaireController struct {
	Service *service.QuestionnaireService
}

func NewQuestionnaireController(svc *service.QuestionnaireService) *QuestionnaireController {
	return &QuestionnaireController{Service: svc}
}

// @Summary 创建问卷
// @Tags 问卷
// @Accept json
// @Produce json
// @Param body body service.QuestionnaireRequest true "问卷定义"
// @Success 201 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/questionnaires [post]
func (c *QuestionnaireController) Create(ctx *gin.Context) {
	var req service.QuestionnaireRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, schemaErrs, err := c.Service.Create(req)
	if err != nil {
		if errors.Is(err, util.ErrSchemaInvalid) {
			util.UnprocessableEntity(ctx, schemaErrs)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, q)
}

// @Summary 获取问卷详情
// @Tags 问卷
// @Produce json
// @Param id path string true "问卷ID"
// @Success 200 {object} util.Response
// @Router /api/questionnaires/{id} [get]
func (c *QuestionnaireController) Get(ctx *gin.Context) {
	q, err := c.Service.Get(ctx.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 问卷列表
// @Tags 问卷
// @Produce json
// @Param workspaceId query string false "工作区ID"
// @Param status query string false "状态"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/questionnaires [get]
func (c *QuestionnaireController) List(ctx *gin.Context) {
	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"))

	qs, total, err := c.Service.List(ctx.Query("workspaceId"), ctx.Query("status"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: qs, Total: total, Page: page, Limit: limit})
}

// @Summary 更新问卷
// @Tags 问卷
// @Accept json
// @Produce json
// @Param id path string true "问卷ID"
// @Param body body service.QuestionnaireRequest true "问卷定义"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/questionnaires/{id} [put]
func (c *QuestionnaireController) Update(ctx *gin.Context) {
	var req service.QuestionnaireRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, schemaErrs, err := c.Service.Update(ctx.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSchemaInvalid):
			util.UnprocessableEntity(ctx, schemaErrs)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, q)
}

// @Summary 删除问卷
// @Tags 问卷
// @Produce json
// @Param id path string true "问卷ID"
// @Success 200 {object} util.Response
// @Router /api/questionnaires/{id} [delete]
func (c *QuestionnaireController) Delete(ctx *gin.Context) {
	if err := c.Service.Delete(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 发布问卷
// @Description 发布前运行完整的结构校验，存在引用错误或跳转环时拒绝发布
// @Tags 问卷
// @Produce json
// @Param id path string true "问卷ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response
// @Router /api/questionnaires/{id}/publish [post]
func (c *QuestionnaireController) Publish(ctx *gin.Context) {
	q, schemaErrs, err := c.Service.Publish(ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSchemaInvalid):
			util.UnprocessableEntity(ctx, schemaErrs)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, q)
}

// @Summary 关闭问卷
// @Tags 问卷
// @Produce json
// @Param id path string true "问卷ID"
// @Success 200 {object} util.Response
// @Router /api/questionnaires/{id}/close [post]
func (c *QuestionnaireController) Close(ctx *gin.Context) {
	if err := c.Service.Close(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
