package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/verity-cli/internal/observability"
	"github.com/xkilldash9x/verity-cli/internal/session"
)

func newSessionManager(state *appState) (*session.Manager, error) {
	store, err := session.NewStore(state.cfg.Session.Dir, observability.GetLogger())
	if err != nil {
		return nil, err
	}
	return session.NewManager(store, observability.GetLogger()), nil
}

func newSessionCmd(state *appState) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage persistent browser sessions",
	}
	sessionCmd.AddCommand(
		newSessionListCmd(state),
		newSessionSaveCmd(state),
		newSessionRestoreCmd(state),
		newSessionDeleteCmd(state),
		newSessionValidateCmd(state),
	)
	return sessionCmd
}

func newSessionListCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newSessionManager(state)
			if err != nil {
				return err
			}
			sessions, err := m.Store().List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved sessions.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBROWSER\tLAST ACCESSED\tURL")
			for _, info := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					info.SessionID,
					info.BrowserType,
					info.LastAccessed.Format("2006-01-02 15:04:05"),
					info.Metadata["url"],
				)
			}
			return w.Flush()
		},
	}
}

func newSessionSaveCmd(state *appState) *cobra.Command {
	var cdpURL, browserType string

	saveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Record a running browser's CDP endpoint under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newSessionManager(state)
			if err != nil {
				return err
			}

			// Attach briefly so the session metadata captures the page the
			// browser is sitting on.
			allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(cmd.Context(), cdpURL)
			defer cancelAlloc()
			tabCtx, cancelTab := chromedp.NewContext(allocCtx)
			defer cancelTab()

			info, err := m.Save(tabCtx, args[0], cdpURL, browserType, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved session %q -> %s\n", info.SessionID, info.CDPURL)
			return nil
		},
	}
	saveCmd.Flags().StringVar(&cdpURL, "cdp-url", "", "websocket debugger endpoint (ws://...)")
	saveCmd.Flags().StringVar(&browserType, "browser-type", "chromium", "browser family behind the endpoint")
	_ = saveCmd.MarkFlagRequired("cdp-url")
	return saveCmd
}

func newSessionRestoreCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Reattach to a saved session and report its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newSessionManager(state)
			if err != nil {
				return err
			}
			handle, err := m.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer handle.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Session %q is reachable at %s\n",
				handle.Info.SessionID, handle.Info.CDPURL)
			if url := handle.Info.Metadata["url"]; url != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Last recorded page: %s\n", url)
			}
			return nil
		},
	}
}

func newSessionDeleteCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a saved session record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newSessionManager(state)
			if err != nil {
				return err
			}
			removed, err := m.Store().Delete(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No session named %q.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %q.\n", args[0])
			return nil
		},
	}
}

func newSessionValidateCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <name>",
		Short: "Check that a saved session's endpoint still accepts connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newSessionManager(state)
			if err != nil {
				return err
			}
			if !m.Validate(cmd.Context(), args[0]) {
				return fmt.Errorf("session %q is not restorable", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %q is restorable.\n", args[0])
			return nil
		},
	}
}
