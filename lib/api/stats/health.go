package stats

import (
	"time"

	"github.com/ether/etherdoc/lib/db"
	"github.com/ether/etherdoc/lib/session"
	"github.com/gofiber/fiber/v2"
)

type DBChecker struct {
	db db.DataStore
}

func (d DBChecker) Name() string {
	return "database"
}

func (d DBChecker) Check() Check {
	// A read of the server version is the cheapest round trip every store supports.
	_, err := d.db.GetServerVersion()

	if err != nil {
		return Check{
			Status: StatusFail,
			Output: err.Error(),
		}
	}

	return Check{
		Status:     StatusPass,
		Observed:   "ok",
		ObservedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

type SessionChecker struct {
	manager *session.Manager
}

func (s SessionChecker) Name() string {
	return "sessions"
}

func (s SessionChecker) Check() Check {
	active := s.manager.ActiveSessions()
	if active < 0 {
		return Check{
			Status: StatusFail,
			Output: "invalid session count",
		}
	}

	return Check{
		Status:   StatusPass,
		Observed: active,
	}
}

// Handler godoc
// @Summary Health check endpoint
// @Description Returns the health status of the service (RFC Health Check Draft)
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func Handler(
	version string,
	serviceID string,
	checkers []Checker,
) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resp := HealthResponse{
			Status:    StatusPass,
			Version:   version,
			ReleaseID: version,
			ServiceID: serviceID,
			Checks:    map[string][]Check{},
		}

		for _, checker := range checkers {
			check := checker.Check()
			check.Component = checker.Name()
			resp.Checks[checker.Name()] = []Check{check}
			resp.Status = worse(resp.Status, check.Status)
		}

		httpStatus := fiber.StatusOK
		if resp.Status == StatusFail {
			httpStatus = fiber.StatusServiceUnavailable
		}
		return c.Status(httpStatus).JSON(resp)
	}
}
