package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/respond"
)

const (
	orgIDKey     = "orgId"
	OrgIDHeader  = "X-Org-Id"
	maxOrgIDSize = 128
)

var orgIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// OrgIdentity requires an X-Org-Id header and stores it in context.
// Paths in skip are served without an identity.
func OrgIdentity(skip ...string) gin.HandlerFunc {
	open := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		open[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if _, ok := open[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		orgID := strings.TrimSpace(c.GetHeader(OrgIDHeader))
		if orgID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing organization identity", nil)
			return
		}
		if len(orgID) > maxOrgIDSize || !orgIDPattern.MatchString(orgID) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid organization identity", []map[string]string{
				{"field": OrgIDHeader, "issue": "must be 1-128 characters of letters, digits, '.', '_', ':' or '-'"},
			})
			return
		}

		c.Set(orgIDKey, orgID)
		c.Next()
	}
}

// OrgIDFromContext fetches the organization ID set by OrgIdentity.
func OrgIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(orgIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
