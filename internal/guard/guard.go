package guard

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// DefaultLoginPath is where unauthenticated navigation is sent.
const DefaultLoginPath = "/login"

// Authenticator reports whether a session is currently active.
type Authenticator interface {
	IsAuthenticated() bool
}

// Decision is the outcome of a guarded navigation.
type Decision struct {
	Render     bool
	RedirectTo string
}

// Guard decides whether a protected view may render.
// It holds no state of its own and asks the Authenticator on every check,
// so a logout takes effect on the very next navigation.
type Guard struct {
	auth      Authenticator
	loginPath string
}

// New creates a Guard. An empty loginPath uses DefaultLoginPath.
func New(auth Authenticator, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Guard{auth: auth, loginPath: loginPath}
}

// Check evaluates a navigation to view.
func (g *Guard) Check(view string) Decision {
	if g.auth.IsAuthenticated() {
		return Decision{Render: true}
	}
	log.Printf("DEBUG: guard: redirecting %s to %s", view, g.loginPath)
	return Decision{RedirectTo: g.loginPath}
}

// Middleware applies Check to every request routed through it.
func (g *Guard) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := g.Check(c.Path())
		if !d.Render {
			return c.Redirect(d.RedirectTo, fiber.StatusFound)
		}
		return c.Next()
	}
}
