package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/nosql/application/cache"
)

// newStoreCmd creates the store command.
func (a *App) newStoreCmd() *cobra.Command {
	var valueType string

	cmd := &cobra.Command{
		Use:   "store VALUE",
		Short: "Store a value under a new random key",
		Long: `Store a value under a new random key and print the key.

Every call increments the Cache.Store counter and appends to its input and
output history.

Examples:
  nosql store hello
  nosql store --type int 42
  nosql store --type float 2.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[0], valueType)
			if err != nil {
				return err
			}

			c, release, err := a.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			key, err := c.Store(cmd.Context(), value)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, key)
			return nil
		},
	}

	cmd.Flags().StringVar(&valueType, "type", "string", "Value type: string, int, float or bytes")
	return cmd
}

func parseValue(raw, valueType string) (any, error) {
	switch valueType {
	case "string":
		return raw, nil
	case "bytes":
		return []byte(raw), nil
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q: %w", raw, err)
		}
		return n, nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", raw, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown type %q: must be string, int, float or bytes", valueType)
	}
}

// newGetCmd creates the get command.
func (a *App) newGetCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Read a stored value",
		Long: `Read the value stored under KEY.

--as raw prints the stored bytes quoted, or (nil) when the key is absent.
--as string decodes the value as text and fails when the key is absent.
--as int parses the value as an integer and prints 0 when that fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, release, err := a.openCache(ctx)
			if err != nil {
				return err
			}
			defer release()

			key := args[0]
			switch as {
			case "raw":
				raw, err := c.Get(ctx, key)
				if err != nil {
					return err
				}
				if raw == nil {
					fmt.Fprintln(a.stdout, "(nil)")
					return nil
				}
				fmt.Fprintf(a.stdout, "%q\n", raw)
			case "string":
				s, err := c.GetStr(ctx, key)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, s)
			case "int":
				n, err := c.GetBigInt(ctx, key)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, n)
			default:
				return fmt.Errorf("unknown conversion %q: must be raw, string or int", as)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "raw", "Conversion: raw, string or int")
	return cmd
}

// newCallsCmd creates the calls command.
func (a *App) newCallsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calls [NAME]",
		Short: "Print how many times an operation was called",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := cache.StoreOperation
			if len(args) > 0 {
				name = args[0]
			}

			c, release, err := a.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			n, err := c.Calls(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, n)
			return nil
		},
	}
}

// newReplayCmd creates the replay command.
func (a *App) newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [NAME]",
		Short: "Print the recorded calls of an operation",
		Long: `Print how many times an operation was called followed by one line per
recorded call with its arguments and result.

Example:
  $ nosql replay
  Cache.Store was called 2 times:
  Cache.Store("foo") -> 5c2a...
  Cache.Store(42) -> 9e1b...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := cache.StoreOperation
			if len(args) > 0 {
				name = args[0]
			}

			c, release, err := a.openCache(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			return c.Replay(cmd.Context(), a.stdout, name)
		},
	}
}

// newFlushCmd creates the flush command.
func (a *App) newFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Delete every key in the store",
		Long: `Delete every key in the store. With a key prefix configured only keys
under that prefix are deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := a.openStore()
			if err != nil {
				return err
			}
			defer release()

			if err := store.FlushDB(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "OK")
			return nil
		},
	}
}
