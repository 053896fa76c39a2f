package user

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lshigami/gradebridge/internal/controller"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/service"
)

const TokenHeader = "X-Edx-Token"

type SubmissionController struct {
	submissionService service.SubmissionService
}

func NewSubmissionController(ss service.SubmissionService) *SubmissionController {
	return &SubmissionController{submissionService: ss}
}

// GetToken godoc
// @Summary Look up a token
// @Description Returns the assignment a launch token was issued for.
// @Tags Submissions
// @Produce json
// @Param token path string true "Launch token"
// @Success 200 {object} dto.TokenInfoResponse
// @Failure 404 {object} dto.ErrorResponse "Invalid token"
// @Router /tokens/{token} [get]
func (c *SubmissionController) GetToken(ctx *gin.Context) {
	info, err := c.submissionService.DescribeToken(ctx.Request.Context(), ctx.Param("token"))
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, info)
}

// Submit godoc
// @Summary Submit work for an assignment
// @Description Stores the submission, links it to the launch of the token and to the learner's grade record, and writes it to the file store.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param X-Edx-Token header string false "Launch token (alternative to the token field)"
// @Param submission body dto.SubmissionRequest true "Submission"
// @Success 201 {object} dto.SubmissionResponse
// @Failure 400 {object} dto.ErrorResponse "Missing token or malformed body"
// @Failure 401 {object} dto.ErrorResponse "Learner could not be identified"
// @Failure 404 {object} dto.ErrorResponse "Invalid token"
// @Failure 500 {object} dto.ErrorResponse "Store unavailable"
// @Router /submissions [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	var req dto.SubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.MalformedBody(ctx, err)
		return
	}
	if token := ctx.GetHeader(TokenHeader); token != "" {
		req.Token = token
	}
	var bearer string
	if b, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), "Bearer "); ok {
		bearer = b
	}

	resp, err := c.submissionService.RecordSubmission(ctx.Request.Context(), req, bearer)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}
