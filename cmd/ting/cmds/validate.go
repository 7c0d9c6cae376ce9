package cmds

import (
	"fmt"
	"io"

	"github.com/gtklocker/ting/pkg/i18n"
	"github.com/gtklocker/ting/pkg/login"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ErrInvalidUsernames is returned when at least one argument fails
// validation.
var ErrInvalidUsernames = errors.New("invalid usernames")

func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate USERNAME...",
		Short: "Check usernames against the login rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			tr, err := i18n.New(s.Locale)
			if err != nil {
				return err
			}
			return validateUsernames(cmd.OutOrStdout(), tr, args)
		},
	}
}

func validateUsernames(w io.Writer, tr i18n.Translator, usernames []string) error {
	bad := 0
	for _, u := range usernames {
		r := login.Validate(u)
		if r.IsValid() {
			_, _ = fmt.Fprintf(w, "%q\t%s\n", u, r)
			continue
		}
		bad++
		_, _ = fmt.Fprintf(w, "%q\t%s\t%s\n", u, r, tr.T(r.ErrorKey()))
	}
	if bad > 0 {
		return errors.Wrapf(ErrInvalidUsernames, "%d of %d", bad, len(usernames))
	}
	return nil
}
