package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/gradebridge/internal/controller"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/service"
)

type OutcomeController struct {
	outcomeService service.OutcomeService
}

func NewOutcomeController(svc service.OutcomeService) *OutcomeController {
	return &OutcomeController{outcomeService: svc}
}

func (c *OutcomeController) respond(ctx *gin.Context, resp *dto.DispatchResponse, err error) {
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	log.Info().Str("path", ctx.FullPath()).Int("sent", resp.Sent).Msg("Admin outcome dispatch completed")
	ctx.JSON(http.StatusOK, resp)
}

// DispatchEverything godoc
// @Summary (Admin) Send every final grade to edX
// @Tags Admin - Outcomes
// @Produce json
// @Security AdminToken
// @Success 200 {object} dto.DispatchResponse
// @Failure 409 {object} dto.ErrorResponse "Some users are not ready"
// @Failure 502 {object} dto.ErrorResponse "The outcome service failed"
// @Router /admin/outcomes [post]
func (c *OutcomeController) DispatchEverything(ctx *gin.Context) {
	resp, err := c.outcomeService.DispatchEverything(ctx.Request.Context())
	c.respond(ctx, resp, err)
}

// DispatchAll godoc
// @Summary (Admin) Send one assignment of every user to edX
// @Tags Admin - Outcomes
// @Produce json
// @Security AdminToken
// @Param header path string true "Assignment"
// @Success 200 {object} dto.DispatchResponse
// @Failure 409 {object} dto.ErrorResponse "Some users are not ready"
// @Failure 502 {object} dto.ErrorResponse "The outcome service failed"
// @Router /admin/outcomes/headers/{header} [post]
func (c *OutcomeController) DispatchAll(ctx *gin.Context) {
	resp, err := c.outcomeService.DispatchAll(ctx.Request.Context(), ctx.Param("header"))
	c.respond(ctx, resp, err)
}

// DispatchUser godoc
// @Summary (Admin) Send every assignment of one user to edX
// @Tags Admin - Outcomes
// @Produce json
// @Security AdminToken
// @Param user_id path string true "User ID"
// @Success 200 {object} dto.DispatchResponse
// @Failure 404 {object} dto.ErrorResponse "Unknown user"
// @Failure 409 {object} dto.ErrorResponse "Not ready for dispatch"
// @Failure 502 {object} dto.ErrorResponse "The outcome service failed"
// @Router /admin/outcomes/users/{user_id} [post]
func (c *OutcomeController) DispatchUser(ctx *gin.Context) {
	resp, err := c.outcomeService.DispatchUser(ctx.Request.Context(), ctx.Param("user_id"))
	c.respond(ctx, resp, err)
}

// DispatchOne godoc
// @Summary (Admin) Send one assignment of one user to edX
// @Tags Admin - Outcomes
// @Produce json
// @Security AdminToken
// @Param user_id path string true "User ID"
// @Param header path string true "Assignment"
// @Success 200 {object} dto.DispatchResponse
// @Failure 404 {object} dto.ErrorResponse "Unknown user or assignment"
// @Failure 409 {object} dto.ErrorResponse "Not ready for dispatch"
// @Failure 502 {object} dto.ErrorResponse "The outcome service failed"
// @Router /admin/outcomes/users/{user_id}/{header} [post]
func (c *OutcomeController) DispatchOne(ctx *gin.Context) {
	resp, err := c.outcomeService.DispatchOne(ctx.Request.Context(), ctx.Param("user_id"), ctx.Param("header"))
	c.respond(ctx, resp, err)
}
