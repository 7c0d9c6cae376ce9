package main

import (
	"io"

	"github.com/gtklocker/ting/cmd/ting/cmds"
	"github.com/gtklocker/ting/pkg/config"
	"github.com/gtklocker/ting/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:          "ting",
	Short:        "ting is a terminal client for Ting chat servers",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// reinitialize the logger now that --log-level and co are parsed
		s, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		logCloser, err = logging.Init(s.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func main() {
	config.AddFlags(rootCmd)
	err := config.InitViper(viper.GetViper(), rootCmd)
	cobra.CheckErr(err)

	chatCmd := cmds.NewChatCommand()
	rootCmd.AddCommand(
		chatCmd,
		cmds.NewTailCommand(),
		cmds.NewValidateCommand(),
		cmds.NewHistoryCommand(),
	)
	// plain `ting` opens the chat
	rootCmd.RunE = chatCmd.RunE

	err = rootCmd.Execute()
	cobra.CheckErr(err)
}
