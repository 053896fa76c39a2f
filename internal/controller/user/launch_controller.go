package user

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/controller"
	"github.com/lshigami/gradebridge/internal/dto"
	"github.com/lshigami/gradebridge/internal/service"
)

type LaunchController struct {
	launchService service.LaunchService
	redirectURL   string
}

func NewLaunchController(ls service.LaunchService, cfg *config.Config) *LaunchController {
	return &LaunchController{launchService: ls, redirectURL: cfg.LTI.LaunchRedirectURL}
}

// Launch godoc
// @Summary Register an LTI launch
// @Description Called by the course platform. Verifies the OAuth signature, stores the launch and hands the learner a token to submit with. Redirects to the configured page when LAUNCH_REDIRECT_URL is set.
// @Tags LTI
// @Accept x-www-form-urlencoded
// @Produce json
// @Param lis_outcome_service_url formData string false "Outcome service URL"
// @Param lis_result_sourcedid formData string true "Result sourced id"
// @Param custom_header formData string false "Assignment"
// @Param custom_subheader formData string false "Sub-assignment"
// @Success 200 {object} dto.LaunchResponse
// @Success 302 "Redirect to the submission page with ?token="
// @Failure 400 {object} dto.ErrorResponse "Missing result sourced id"
// @Failure 401 {object} dto.ErrorResponse "Invalid or replayed launch signature"
// @Failure 500 {object} dto.ErrorResponse "Store unavailable"
// @Router /lti/launch [post]
func (c *LaunchController) Launch(ctx *gin.Context) {
	var form dto.LaunchForm
	if err := ctx.ShouldBind(&form); err != nil {
		controller.MalformedBody(ctx, err)
		return
	}

	protocol, host := requestOrigin(ctx.Request)
	record, err := c.launchService.RegisterLaunch(ctx.Request.Context(), service.LaunchInput{
		Form:     form,
		Params:   ctx.Request.PostForm,
		Method:   ctx.Request.Method,
		URL:      protocol + "://" + host + ctx.Request.URL.RequestURI(),
		Protocol: protocol,
		Host:     host,
	})
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}

	if c.redirectURL != "" {
		target, err := url.Parse(c.redirectURL)
		if err != nil {
			log.Error().Err(err).Str("url", c.redirectURL).Msg("Launch redirect URL is invalid")
			ctx.JSON(http.StatusOK, dto.LaunchResponse{Token: record.Token})
			return
		}
		q := target.Query()
		q.Set("token", record.Token)
		target.RawQuery = q.Encode()
		ctx.Redirect(http.StatusFound, target.String())
		return
	}
	ctx.JSON(http.StatusOK, dto.LaunchResponse{Token: record.Token})
}

// requestOrigin returns the scheme and host the consumer used, honouring a
// TLS-terminating proxy in front of the bridge.
func requestOrigin(r *http.Request) (string, string) {
	protocol := "http"
	if r.TLS != nil {
		protocol = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		protocol = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return protocol, host
}
