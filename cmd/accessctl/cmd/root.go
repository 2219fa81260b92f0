package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/accessdesk/accessdesk/internal/client"
)

var (
	serverURL   string
	sessionPath string
)

var rootCmd = &cobra.Command{
	Use:   "accessctl",
	Short: "AccessDesk CLI - users, roles and permissions from the terminal",
	Long: `accessctl logs in to an AccessDesk server, keeps the session and the
permission matrix on disk, and answers permission questions from that cache.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, client.ErrReauthenticate) || errors.Is(err, client.ErrNoSession) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("ACCESSDESK_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "AccessDesk API URL (also ACCESSDESK_SERVER)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session-file", "", "session file (default $ACCESSDESK_SESSION_FILE or ~/.accessdesk/session.json)")

	rootCmd.AddCommand(loginCmd, logoutCmd, refreshCmd, whoamiCmd, canCmd, matrixCmd)
}

// newClient builds a client whose cache is loaded from the session file.
// A missing or discarded session leaves the cache empty.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	store, err := client.NewFileStore(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	cache := client.NewPermissionCache(store)
	if err := cache.Load(); err != nil {
		if !errors.Is(err, client.ErrNoSession) {
			return nil, err
		}
		if err != client.ErrNoSession {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		}
	}
	return client.New(serverURL, cache), nil
}
