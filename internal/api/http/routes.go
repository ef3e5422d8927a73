package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/guard"
	"github.com/i474232898/weather-dashboard/internal/remote"
	"github.com/i474232898/weather-dashboard/internal/session"
	"github.com/i474232898/weather-dashboard/internal/view"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, sessions *session.Store, page *view.Page, g *guard.Guard) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/weather", fiber.StatusFound)
	})

	app.Get("/login", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"authenticated": sessions.IsAuthenticated(),
			"message":       "POST username and password to /login",
		})
	})

	app.Post("/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid login payload")
		}

		sess, err := sessions.Login(c.UserContext(), remote.Credentials{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			return toHTTPError(err, "login failed")
		}

		return c.JSON(fiber.Map{
			"authenticated": true,
			"username":      sess.Username,
		})
	})

	app.Post("/register", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid registration payload")
		}

		err := sessions.Register(c.UserContext(), remote.Registration{
			Username:  req.Username,
			Email:     req.Email,
			Password1: req.Password1,
			Password2: req.Password2,
		})
		if err != nil {
			return toHTTPError(err, "registration failed")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"registered": true,
			"username":   req.Username,
		})
	})

	app.Post("/logout", func(c *fiber.Ctx) error {
		page.Clear()
		if err := sessions.Logout(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear session")
		}
		return c.Redirect("/login", fiber.StatusSeeOther)
	})

	w := app.Group("/weather", g.Middleware())

	w.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(page.Render())
	})

	w.Post("/location", func(c *fiber.Ctx) error {
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location payload")
		}

		if err := page.SetLocation(req.Location); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(page.Render())
	})

	w.Post("/refresh/:kind", func(c *fiber.Ctx) error {
		kind, err := weather.ParseKind(c.Params("kind"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := page.Refresh(kind); err != nil {
			if errors.Is(err, view.ErrNoLocation) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to refresh")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"refreshing": kind,
			"location":   page.Location(),
		})
	})
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type registerRequest struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

type locationRequest struct {
	Location string `json:"location" form:"location"`
}

// toHTTPError maps session and remote errors onto HTTP statuses.
func toHTTPError(err error, fallback string) error {
	var (
		authErr  *weather.AuthError
		apiErr   *weather.APIError
		netErr   *weather.NetworkError
		validErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &authErr):
		return fiber.NewError(fiber.StatusUnauthorized, authErr.Error())
	case errors.As(err, &validErr):
		return fiber.NewError(fiber.StatusBadRequest, validErr.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return fiber.NewError(apiErr.StatusCode, apiErr.Error())
	case errors.As(err, &netErr), errors.As(err, &apiErr):
		return fiber.NewError(fiber.StatusServiceUnavailable, "auth service unavailable")
	default:
		return fiber.NewError(http.StatusInternalServerError, fallback)
	}
}
