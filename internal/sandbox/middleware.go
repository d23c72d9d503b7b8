package sandbox

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// requireAuth validates the bearer token and loads the caller's user record
// into locals. A wallet that verified but never registered still gets a valid
// token; its user id local stays empty until registration.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	authz := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	tokenStr := strings.TrimSpace(authz[len("Bearer "):])
	claims, err := VerifyToken(tokenStr, []byte(s.cfg.JWTSecret))
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}

	addr, _ := claims["addr"].(string)
	if addr == "" {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}
	c.Locals("wallet_address", addr)

	// Tokens are minted before registration, so the user record is resolved
	// per request rather than pinned at mint time.
	if user, err := s.store.UserByAddress(c.UserContext(), addr); err == nil {
		c.Locals("user_id", user.ID)
	}
	return c.Next()
}

type callerInfo struct {
	userID  string
	address string
}

func (c callerInfo) registered() bool { return c.userID != "" }

func caller(c *fiber.Ctx) callerInfo {
	id, _ := c.Locals("user_id").(string)
	addr, _ := c.Locals("wallet_address").(string)
	return callerInfo{userID: id, address: addr}
}

// currentUser loads the authenticated user, failing for unregistered wallets.
func (s *Server) currentUser(c *fiber.Ctx) (User, error) {
	info := caller(c)
	if !info.registered() {
		return User{}, fiber.NewError(http.StatusForbidden, "registration required")
	}
	user, err := s.store.UserByID(c.UserContext(), info.userID)
	if err != nil {
		return User{}, fiber.NewError(http.StatusUnauthorized, "token invalidated")
	}
	return user, nil
}
