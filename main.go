package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configx "github.com/rishi-noob/soulsyncmain/pkg/config"
	logx "github.com/rishi-noob/soulsyncmain/pkg/logger"
	_ "github.com/rishi-noob/soulsyncmain/pkg/logger/autoload"
)

func main() {
	cobra.OnInitialize(initConfig)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "soulsync",
		Short: "SoulSync advice pipeline",
		Long: `Turns a student's situation (mood history, deadlines, conversation, journal text,
forum post) into a validated response from a generative model.

Model settings are read from LLM_*, pipeline settings from PIPELINE_* and server
settings from SERVER_*, optionally loaded from an env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configx.SetEnvFile(viper.GetString("env"))
			conf, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			if viper.GetBool("debug") {
				conf.Debug = true
			}
			logx.Init(*conf)
			return nil
		},
	}

	root.PersistentFlags().String("env", "", "path to .env file")
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().Bool("debug", false, "debug logging")
	_ = viper.BindPFlag("env", root.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(useCasesCmd())
	return root
}

func initConfig() {
	viper.SetEnvPrefix("SOULSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
