package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // Header trimming

	"cert_registry/internal/identity" // Wallet role checks

	"github.com/gin-gonic/gin" // Gin web framework
)

// WalletHeader carries the connected wallet address from the frontend
const WalletHeader = "X-Wallet-Address"

// AdminWalletMiddleware only lets requests through whose wallet header
// matches the configured admin address. The header is not signed, so this
// mirrors the frontend's role gate rather than authenticating anyone.
func AdminWalletMiddleware(adminAddress string) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := strings.TrimSpace(c.GetHeader(WalletHeader)) // Get wallet address from header
		// Check if the header is present
		if address == "" {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Wallet address required"})
			return
		}
		// Check if the wallet is the admin wallet
		if !identity.IsAdmin(address, adminAddress) {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Set("walletAddress", address) // Store wallet in context
		c.Next()                        // If admin, proceed to the next handler
	}
}
