package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"arxiv_rag_go_backend/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "scholar",
	Short: "Search arXiv and ask questions about papers from the terminal",
	Long: `scholar talks to the arXiv RAG API. Without a subcommand it opens the
interactive UI; search and ask print results for scripting.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUI(cmd)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scholar.yaml or ~/.config/scholar/config.yaml)")
	rootCmd.PersistentFlags().String("api-base", client.DefaultBaseURL, "backend origin")
	rootCmd.PersistentFlags().String("token", "", "bearer token for protected routes")
	rootCmd.PersistentFlags().Duration("timeout", 2*time.Minute, "request timeout")

	_ = viper.BindPFlag("api_base", rootCmd.PersistentFlags().Lookup("api-base"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scholar")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scholar"))
		}
	}

	viper.SetEnvPrefix("SCHOLAR")
	viper.AutomaticEnv()
	// The web frontend's variable is honoured so both clients share one setting.
	_ = viper.BindEnv("api_base", "SCHOLAR_API_BASE", "VITE_LOCAL_API_BASE")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *client.Client {
	opts := []client.Option{}
	if token := viper.GetString("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		opts = append(opts, client.WithHTTPClient(newHTTPClient(timeout)))
	}
	return client.New(viper.GetString("api_base"), opts...)
}
