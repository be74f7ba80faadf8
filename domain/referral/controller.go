package referral

import (
	"github.com/jarfuel/waitlist-api/config/router"
	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
)

func NewReferralController(service ReferralService) *router.RESTController {
	return router.NewVersionedRESTController(
		"ReferralController",
		"v1",
		"/referrals",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.AddGetHandler(c, nil, "/:code", getReferralStatsHandler(service))
			rs.AddGetHandler(c, nil, "/:code/link", getReferralLinkHandler(service))
			rs.AddPostHandler(c, nil, "/:code/share", trackShareHandler(service))
		},
	)
}

func getReferralStatsHandler(service ReferralService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.GetStats(ctx.Request.Context(), ctx.Param("code"))
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Referral stats retrieved successfully")
	}
}

func getReferralLinkHandler(service ReferralService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.GetLink(ctx.Request.Context(), ctx.Param("code"))
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Referral link retrieved successfully")
	}
}

func trackShareHandler(service ReferralService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.TrackShare(ctx.Request.Context(), ctx.Param("code"))
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Share recorded successfully")
	}
}
