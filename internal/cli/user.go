package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Kaplan-Paving/fleet-backend/internal/model"
	"github.com/Kaplan-Paving/fleet-backend/internal/permission"
	"github.com/Kaplan-Paving/fleet-backend/internal/repository"
	"github.com/Kaplan-Paving/fleet-backend/internal/utils"
)

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User administration",
	}

	var name, loginID, email, contact, password string
	create := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long: `Create an admin account.  The password is read from --password, or
prompted for on a terminal; when neither is available one is generated
and printed once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, generated, err := adminPassword(cmd, password)
			if err != nil {
				return err
			}
			return withDB(func(run dbRun) error {
				presets, err := permission.LoadPresets()
				if err != nil {
					return err
				}
				u := model.User{
					Name:           name,
					UserID:         loginID,
					Email:          email,
					ContactNo:      contact,
					Role:           model.RoleAdmin,
					ProfilePicture: model.DefaultProfilePicture,
					Permissions:    presets.For(model.RoleAdmin),
				}
				users := repository.NewUserRepo(run.db)
				err = users.Create(cmd.Context(), &u, pw, run.cfg.BcryptCost)
				if errors.Is(err, repository.ErrDuplicate) {
					return fmt.Errorf("a user with email %q or login id %q already exists", email, loginID)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "created admin %s (id %d)\n", u.UserID, u.ID)
				if generated {
					fmt.Fprintf(out, "generated password: %s\n", pw)
				}
				return nil
			})
		},
	}
	f := create.Flags()
	f.StringVar(&name, "name", "Administrator", "Display name")
	f.StringVar(&loginID, "login", "admin", "Login id")
	f.StringVar(&email, "email", "", "Email address (required)")
	f.StringVar(&contact, "contact", "-", "Contact number")
	f.StringVar(&password, "password", "", "Password; prompted for when omitted")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

// adminPassword returns the flag value, a password typed at the terminal,
// or a generated one.  generated reports the last case.
func adminPassword(cmd *cobra.Command, flag string) (pw string, generated bool, err error) {
	if flag != "" {
		return flag, false, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return utils.GeneratePassword(), true, nil
	}
	fmt.Fprint(cmd.OutOrStdout(), "Password (empty to generate): ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}
	if pw = strings.TrimSpace(string(raw)); pw == "" {
		return utils.GeneratePassword(), true, nil
	}
	if len(pw) < 6 {
		return "", false, errors.New("password must be at least 6 characters")
	}
	return pw, false, nil
}
