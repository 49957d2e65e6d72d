package middleware

import (
	"crypto/subtle"

	"jobmirror/internal/config"

	"github.com/gofiber/fiber/v3"
)

const syncTokenHeader = "x-sync-token"

// SyncTokenMiddleware gates the admin endpoints on a shared token. With no
// token configured, access is open outside production so local setups work
// without ceremony.
type SyncTokenMiddleware struct {
	token      string
	production bool
}

func NewSyncTokenMiddleware(cfg config.Config) *SyncTokenMiddleware {
	return &SyncTokenMiddleware{
		token:      cfg.Sync.Token,
		production: cfg.App.IsProduction(),
	}
}

func (m *SyncTokenMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m.token == "" {
			if m.production {
				return NewAppError(fiber.StatusForbidden, "Forbidden", nil, nil)
			}
			return c.Next()
		}

		got := c.Get(syncTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(m.token)) != 1 {
			return NewAppError(fiber.StatusForbidden, "Forbidden", nil, nil)
		}
		return c.Next()
	}
}
