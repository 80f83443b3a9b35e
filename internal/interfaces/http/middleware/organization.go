package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aicost/backend/internal/interfaces/http/dto"
)

// OrganizationHeader carries the tenant for every API request
const OrganizationHeader = "X-Organization-ID"

// organizationKey is the gin context key for the resolved organization ID
const organizationKey = "organization_id"

// Organization resolves the tenant from the X-Organization-ID header.
// Requests without a valid organization are rejected before any handler
// runs, so handlers can rely on GetOrganizationID.
func Organization() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OrganizationHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized,
				"missing "+OrganizationHeader+" header",
				GetRequestID(c),
			))
			return
		}

		orgID, err := uuid.Parse(raw)
		if err != nil || orgID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"invalid "+OrganizationHeader+" header",
				GetRequestID(c),
			))
			return
		}

		c.Set(organizationKey, orgID)
		c.Next()
	}
}

// GetOrganizationID returns the organization resolved by Organization.
// The zero UUID means the middleware did not run.
func GetOrganizationID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(organizationKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
