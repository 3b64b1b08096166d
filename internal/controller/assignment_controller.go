package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"quiz_engine_backend/internal/service"
	"quiz_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type AssignmentController struct {
	Assignments *service.AssignmentService
	Attempts    *service.AttemptService
}

func NewAssignmentController(assignments *service.AssignmentService, attempts *service.AttemptService) *AssignmentController {
	return &AssignmentController{Assignments: assignments, Attempts: attempts}
}

// @Summary 创建作业
// @Description JSON 或 multipart 表单（questions 字段为 JSON 字符串，可附带 thumbnail 图片）
// @Tags 作业模块
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateAssignmentRequest true "作业信息"
// @Param thumbnail formData file false "封面图片"
// @Success 201 {object} util.Response{data=service.OwnerAssignment}
// @Failure 400 {object} util.Response
// @Router /api/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	req, err := c.bindCreateRequest(ctx)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	assignment, err := c.Assignments.CreateAssignment(ctx.Request.Context(), user.UserID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, assignment)
}

func (c *AssignmentController) bindCreateRequest(ctx *gin.Context) (*service.CreateAssignmentRequest, error) {
	var req service.CreateAssignmentRequest

	if !strings.HasPrefix(ctx.ContentType(), binding.MIMEMultipartPOSTForm) {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, util.NewValidationError("", "invalid request body: "+err.Error())
		}
		return &req, nil
	}

	if err := ctx.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		return nil, util.NewValidationError("", "invalid form: "+err.Error())
	}
	if raw := ctx.PostForm("questions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Questions); err != nil {
			return nil, util.NewValidationError("questions", "must be a JSON array")
		}
	}

	fh, err := ctx.FormFile("thumbnail")
	if err == http.ErrMissingFile {
		return &req, nil
	}
	if err != nil {
		return nil, util.NewValidationError("thumbnail", err.Error())
	}
	if limit := c.Assignments.Thumbnails.MaxBytes; limit > 0 && fh.Size > limit {
		return nil, util.NewValidationError("thumbnail", fmt.Sprintf("file exceeds %d bytes", limit))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if req.Thumbnail, err = io.ReadAll(f); err != nil {
		return nil, err
	}
	// 以文件头为准，不信任客户端声明的 Content-Type
	if _, err := util.SniffMimeType(req.Thumbnail, util.MimeImage); err != nil {
		return nil, util.NewValidationError("thumbnail", "must be an image")
	}
	return &req, nil
}

// @Summary 获取作业列表
// @Description 管理员获得含正确答案的视图，其他用户获得学生视图
// @Tags 作业模块
// @Produce json
// @Success 200 {object} util.Response{data=[]service.StudentAssignment}
// @Router /api/assignments [get]
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	if user := util.GetUserFromContext(ctx); user.IsAdmin() {
		list, err := c.Assignments.ListAll(ctx.Request.Context())
		if err != nil {
			util.RespondError(ctx, err)
			return
		}
		util.Success(ctx, list)
		return
	}

	list, err := c.Assignments.ListForStudents(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 获取作业详情（学生视图）
// @Tags 作业模块
// @Produce json
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=service.StudentAssignment}
// @Failure 404 {object} util.Response
// @Router /api/assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	id, err := util.ParseID("id", ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	assignment, err := c.Assignments.GetAssignment(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, assignment)
}

// @Summary 获取我创建的作业
// @Tags 作业模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.OwnerAssignment}
// @Router /api/assignments/my-assignments [get]
func (c *AssignmentController) ListMyAssignments(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.Assignments.ListByCreator(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 获取我的提交记录
// @Tags 作业模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]repository.StudentSubmissionRow}
// @Router /api/assignments/my-submissions [get]
func (c *AssignmentController) ListMySubmissions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	rows, err := c.Assignments.ListMySubmissions(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// @Summary 开始作答
// @Tags 作业模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.StartAttemptRequest true "作业ID"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 400 {object} util.Response
// @Router /api/assignments/start [post]
func (c *AssignmentController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.RespondError(ctx, util.NewValidationError("assignment_id", "is required"))
		return
	}

	attempt, err := c.Attempts.StartAttempt(ctx.Request.Context(), req.AssignmentID, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 提交作业
// @Description answer_id 可以是单个ID、数字字符串或ID数组
// @Tags 作业模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.SubmitAssignmentRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 400 {object} util.Response
// @Router /api/assignments/submit [post]
func (c *AssignmentController) SubmitAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.RespondError(ctx, util.NewValidationError("", "invalid request body: "+err.Error()))
		return
	}

	result, err := c.Attempts.SubmitAssignment(ctx.Request.Context(), user.UserID, &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 查看作答结果
// @Tags 作业模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "作业ID"
// @Param attemptId path int true "作答ID"
// @Success 200 {object} util.Response{data=service.AttemptResult}
// @Failure 404 {object} util.Response
// @Router /api/assignments/{id}/result/{attemptId} [get]
func (c *AssignmentController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	assignmentID, err := util.ParseID("id", ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	attemptID, err := util.ParseID("attemptId", ctx.Param("attemptId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	result, err := c.Attempts.GetSingleUserAttempt(ctx.Request.Context(), assignmentID, user.UserID, attemptID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取作业的全部提交
// @Tags 作业模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=[]model.Attempt}
// @Failure 403 {object} util.Response
// @Router /api/assignments/{id}/submissions [get]
func (c *AssignmentController) ListSubmissions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, err := util.ParseID("id", ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	attempts, err := c.Assignments.ListSubmissions(ctx.Request.Context(), id, user)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// @Summary 删除作业
// @Description 级联删除题目、选项、作答记录
// @Tags 作业模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "作业ID"
// @Success 200 {object} util.Response{data=repository.CascadeResult}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assignments/{id} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, err := util.ParseID("id", ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	res, err := c.Assignments.DeleteAssignment(ctx.Request.Context(), id, user)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"assignment_id": id,
		"rows_deleted":  res.Total(),
		"detail":        res,
	})
}
