package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPageCmd creates the page command.
func (a *App) newPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page URL",
		Short: "Print a page, serving it from the cache when possible",
		Long: `Print the text of URL. Every call increments count:{URL}; the page is
fetched on a miss and cached for the configured TTL (10s by default).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, release, err := a.openPageCache()
			if err != nil {
				return err
			}
			defer release()

			text, err := pages.GetPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, text)
			return nil
		},
	}
}

// newPageCountCmd creates the page-count command.
func (a *App) newPageCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page-count URL",
		Short: "Print how many times a page was requested",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, release, err := a.openPageCache()
			if err != nil {
				return err
			}
			defer release()

			n, err := pages.AccessCount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, n)
			return nil
		},
	}
}
