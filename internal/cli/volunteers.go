package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boxwatch/boxwatch-api/pkg/audit"
	"github.com/boxwatch/boxwatch-api/pkg/models"
	"github.com/boxwatch/boxwatch-api/pkg/store"
)

// SetPasscodeCmd returns the set-passcode command
func SetPasscodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-passcode <code>",
		Short: "Set or rotate the shared volunteer passcode",
		Long: `Write the shared passcode that unauthorized volunteers must enter.
Volunteers who are already authorized are not affected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			if code == "" {
				return errors.New("passcode must not be empty")
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if err := a.Store.SetConfig(ctx, &models.SharedConfig{Passcode: code, UpdatedAt: time.Now()}); err != nil {
				return fmt.Errorf("failed to save passcode: %w", err)
			}
			a.Audit.Record(ctx, audit.PasscodeRotated, audit.SystemActor, "", nil)
			fmt.Fprintf(cmd.OutOrStdout(), "%s shared passcode updated\n", color.New(color.FgGreen).Sprint("✓"))
			return nil
		},
	}
}

// GrantCmd returns the grant command
func GrantCmd() *cobra.Command {
	var email, name string
	var root bool

	cmd := &cobra.Command{
		Use:   "grant <uid>",
		Short: "Authorize a volunteer without the passcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			role := models.RoleVolunteer
			if root {
				role = models.RoleRoot
			}
			v := &models.AuthorizedVolunteer{
				UID:          args[0],
				Email:        email,
				DisplayName:  name,
				AuthorizedAt: time.Now(),
				Role:         role,
			}
			ctx := cmd.Context()
			if err := a.Store.UpsertVolunteer(ctx, v); err != nil {
				return fmt.Errorf("failed to save volunteer: %w", err)
			}
			a.Audit.Record(ctx, audit.VolunteerGrant, audit.SystemActor, "", map[string]any{
				"uid":  v.UID,
				"role": role,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s authorized as %s\n", color.New(color.FgGreen).Sprint("✓"), v.UID, role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Volunteer email")
	cmd.Flags().StringVar(&name, "name", "", "Display name shown on boxes")
	cmd.Flags().BoolVar(&root, "root", false, "Grant the root role")

	return cmd
}

// RevokeCmd returns the revoke command
func RevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <uid>",
		Short: "Soft-delete a volunteer authorization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			v, err := a.Store.GetVolunteer(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("volunteer %s is not authorized", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load volunteer: %w", err)
			}
			v.Deleted = true
			if err := a.Store.UpsertVolunteer(ctx, v); err != nil {
				return fmt.Errorf("failed to save volunteer: %w", err)
			}
			a.Audit.Record(ctx, audit.VolunteerRevoke, audit.SystemActor, "", map[string]any{"uid": v.UID})
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s revoked\n", color.New(color.FgYellow).Sprint("!"), v.UID)
			return nil
		},
	}
}
