package waitlist

import (
	"time"

	"github.com/jarfuel/waitlist-api/config/router"
	"github.com/jarfuel/waitlist-api/internal/log"
	"github.com/jarfuel/waitlist-api/pkg/auth"
	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
	"github.com/jarfuel/waitlist-api/pkg/ratelimit"
)

func NewWaitlistController(
	service WaitlistService,
	logger *log.Logger,
) *router.RESTController {

	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			joinLimiter := createJoinRateLimiter()
			positionLimiter := createPositionRateLimiter()

			rs.AddPostHandler(c, joinLimiter, "", joinWaitlistHandler(service))
			rs.AddGetHandler(c, nil, "/count", getWaitlistCountHandler(service))
			rs.AddGetHandler(c, positionLimiter, "/position", getWaitlistPositionHandler(service))
			rs.AddGetHandler(c, nil, "", getAllWaitlistEntriesHandler(service), auth.AdminOnly(logger))
		},
	)
}

func createJoinRateLimiter() ratelimit.RateLimiter {
	const joinRequestsPerMinute = 30 // Signups are bursty around launches; stay permissive

	config := &ratelimit.RateLimitConfig{
		Requests: joinRequestsPerMinute,
		Window:   time.Minute,
		Redis:    nil, // In-memory is fine for a per-instance signup limit
		Logger:   nil,
	}

	return ratelimit.NewRateLimiter(config)
}

func createPositionRateLimiter() ratelimit.RateLimiter {
	// Position lookups take a bare email and confirm membership, so the
	// budget stays as tight as join.
	const positionRequestsPerMinute = 30

	config := &ratelimit.RateLimitConfig{
		Requests: positionRequestsPerMinute,
		Window:   time.Minute,
		Redis:    nil,
		Logger:   nil,
	}

	return ratelimit.NewRateLimiter(config)
}

func joinWaitlistHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req JoinWaitlistRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Error("Failed to bind request", "error", err)

			validationErrors := apperrors.FormatValidationErrors(err, &req)
			if len(validationErrors) > 0 {
				return router.BadRequestResult("Invalid request payload", validationErrors)
			}

			return router.BadRequestResult("Invalid request body", nil)
		}

		response, err := service.Join(ctx.Request.Context(), &req)
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		if response.AlreadyJoined {
			return router.OKResult(response, "Already on the waitlist")
		}

		return router.CreatedResult(response, "Waitlist entry")
	}
}

func getWaitlistCountHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.GetCount(ctx.Request.Context())
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Waitlist count retrieved successfully")
	}
}

func getWaitlistPositionHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		email := ctx.Query("email")
		if email == "" {
			return router.BadRequestResult("Query parameter 'email' is required", nil)
		}

		response, err := service.GetPosition(ctx.Request.Context(), email)
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Waitlist position retrieved successfully")
	}
}

func getAllWaitlistEntriesHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.GetAllEntries(ctx.Request.Context())
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.OKResult(response, "Waitlist entries retrieved successfully")
	}
}
