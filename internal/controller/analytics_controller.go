package controller

import (
	"errors"
	"time"

	"formpulse_backend/internal/model"
	"formpulse_backend/internal/service"
	"formpulse_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AnalyticsController struct {
	Service *service.AnalyticsService
}

func NewAnalyticsController(svc *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Service: svc}
}

func parseDateRange(ctx *gin.Context) (model.DateRange, error) {
	var dr model.DateRange
	if from := ctx.Query("from"); from != "" {
		t, err := time.Parse(util.DateFormat, from)
		if err != nil {
			return dr, err
		}
		dr.Start = t
	}
	if to := ctx.Query("to"); to != "" {
		t, err := time.Parse(util.DateFormat, to)
		if err != nil {
			return dr, err
		}
		// 含当天
		dr.End = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	return dr, nil
}

// @Summary 聚合报表
// @Description 按时间窗口聚合问卷的全部响应，同一批输入的结果确定且可缓存
// @Tags 分析
// @Produce json
// @Param id path string true "问卷ID"
// @Param from query string false "开始日期 yyyy-mm-dd"
// @Param to query string false "结束日期 yyyy-mm-dd"
// @Success 200 {object} util.Response
// @Router /api/questionnaires/{id}/analytics [get]
func (c *AnalyticsController) Report(ctx *gin.Context) {
	dateRange, err := parseDateRange(ctx)
	if err != nil {
		util.BadRequest(ctx, "invalid date range")
		return
	}

	report, err := c.Service.Report(ctx.Request.Context(), ctx.Param("id"), dateRange)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 报表结论与建议
// @Tags 分析
// @Produce json
// @Param id path string true "问卷ID"
// @Param from query string false "开始日期 yyyy-mm-dd"
// @Param to query string false "结束日期 yyyy-mm-dd"
// @Success 200 {object} util.Response
// @Router /api/questionnaires/{id}/analytics/insights [get]
func (c *AnalyticsController) Insights(ctx *gin.Context) {
	dateRange, err := parseDateRange(ctx)
	if err != nil {
		util.BadRequest(ctx, "invalid date range")
		return
	}

	insights, err := c.Service.Insights(ctx.Request.Context(), ctx.Param("id"), dateRange)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, insights)
}
