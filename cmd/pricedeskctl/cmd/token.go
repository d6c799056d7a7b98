package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pricedesk/internal/api/auth"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

var (
	tokenUserID string
	tokenEmail  string
	tokenName   string
	tokenRole   string
	tokenTTL    time.Duration
	tokenIssuer string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development access token",
	Long: `Issue a bearer token for the pricedesk API, signed with
PRICEDESK_JWT_SECRET. Production tokens come from the platform auth
service; this is for local development and testing.

Examples:
  # Admin token valid for one hour
  pricedeskctl token --email admin@example.com --role admin

  # Moderator token for scripts
  pricedeskctl token --email mod@example.com --role moderator --ttl 24h`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "user id (default: random)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "user email (required)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(models.RoleViewer), "role (admin, moderator, viewer)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	tokenCmd.Flags().StringVar(&tokenIssuer, "issuer", auth.DefaultIssuer, "token issuer")
	tokenCmd.MarkFlagRequired("email")
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := os.Getenv("PRICEDESK_JWT_SECRET")
	if len(secret) < 32 {
		return fmt.Errorf("PRICEDESK_JWT_SECRET must be set to at least 32 bytes")
	}
	if tokenTTL <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	role := models.ParseRole(tokenRole)
	if string(role) != tokenRole && tokenRole != "superadmin" {
		return fmt.Errorf("invalid role %q (expected admin, moderator or viewer)", tokenRole)
	}
	if tokenUserID == "" {
		tokenUserID = uuid.New().String()
	}

	svc := auth.NewJWTService([]byte(secret), tokenTTL, tokenIssuer)
	token, err := svc.GenerateToken(&models.User{
		ID:    tokenUserID,
		Email: tokenEmail,
		Name:  tokenName,
		Role:  role,
	})
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	if GetOutput() == "json" {
		printJSON(map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   int(tokenTTL.Seconds()),
			"role":         role,
		})
		return nil
	}
	fmt.Println(token)
	return nil
}
