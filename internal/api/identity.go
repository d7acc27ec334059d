package api

import (
	"net/http" // HTTP status codes
	"strings"  // Address trimming

	"cert_registry/internal/identity" // Admin checks

	"github.com/gin-gonic/gin" // Gin web framework
)

// IdentityHandler reports the role the frontend should show for an address
func IdentityHandler(adminAddress string) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := strings.TrimSpace(c.Param("address"))           // Wallet address to classify
		isAdmin, err := identity.CheckAdmin(address, adminAddress) // Compare with the admin address
		role := identity.RoleStudent
		if isAdmin {
			role = identity.RoleAdmin
		}
		c.JSON(http.StatusOK, gin.H{
			"address":         address,    // Echo the address
			"role":            role,       // admin or student
			"adminConfigured": err == nil, // False when no admin address is set
		})
	}
}
