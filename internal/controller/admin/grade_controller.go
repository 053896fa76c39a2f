package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lshigami/gradebridge/internal/controller"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/service"
)

type GradeController struct {
	gradeService service.GradeService
}

func NewGradeController(gs service.GradeService) *GradeController {
	return &GradeController{gradeService: gs}
}

// SubmitGrades godoc
// @Summary (Admin) Record final grades for many users
// @Description Every user is processed independently. The call fails if any user fails; grades of the other users stay recorded.
// @Tags Admin - Grades
// @Accept json
// @Produce json
// @Security AdminToken
// @Param grades body dto.BatchGradesRequest true "users -> header -> subheader -> grade"
// @Success 200 {object} dto.GradeUpdateResponse
// @Failure 400 {object} dto.ErrorResponse "Malformed body"
// @Failure 401 {object} dto.ErrorResponse "Invalid admin token"
// @Failure 404 {object} dto.ErrorResponse "Unknown user, assignment or sub-assignment"
// @Router /admin/grades [post]
func (c *GradeController) SubmitGrades(ctx *gin.Context) {
	var req dto.BatchGradesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.MalformedBody(ctx, err)
		return
	}
	resp, err := c.gradeService.SubmitGrades(ctx.Request.Context(), req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitUserGrades godoc
// @Summary (Admin) Record final grades for one user
// @Tags Admin - Grades
// @Accept json
// @Produce json
// @Security AdminToken
// @Param user_id path string true "User ID"
// @Param grades body dto.UserGradesRequest true "header -> subheader -> grade, wrapped in grades or bare"
// @Success 200 {object} dto.GradeUpdateResponse
// @Failure 400 {object} dto.ErrorResponse "Malformed body"
// @Failure 404 {object} dto.ErrorResponse "Unknown user, assignment or sub-assignment"
// @Router /admin/grades/users/{user_id} [post]
func (c *GradeController) SubmitUserGrades(ctx *gin.Context) {
	var req dto.UserGradesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.MalformedBody(ctx, err)
		return
	}
	resp, err := c.gradeService.SubmitUserGrades(ctx.Request.Context(), ctx.Param("user_id"), req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitAssignmentGrades godoc
// @Summary (Admin) Record final grades for one assignment of one user
// @Tags Admin - Grades
// @Accept json
// @Produce json
// @Security AdminToken
// @Param user_id path string true "User ID"
// @Param header path string true "Assignment"
// @Param grades body dto.AssignmentGradesRequest true "subheader -> grade"
// @Success 200 {object} dto.GradeUpdateResponse
// @Failure 400 {object} dto.ErrorResponse "Malformed body"
// @Failure 404 {object} dto.ErrorResponse "Unknown user, assignment or sub-assignment"
// @Router /admin/grades/users/{user_id}/{header} [post]
func (c *GradeController) SubmitAssignmentGrades(ctx *gin.Context) {
	var req dto.AssignmentGradesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.MalformedBody(ctx, err)
		return
	}
	resp, err := c.gradeService.SubmitAssignmentGrades(ctx.Request.Context(), ctx.Param("user_id"), ctx.Param("header"), req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
