package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/mongokv"
)

func (a *app) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print the value of a key as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			forWrite, _ := cmd.Flags().GetBool("for-write")

			var (
				out string
				ok  bool
				err error
			)
			if forWrite {
				var v any
				if v, ok, err = mongokv.GetForWrite[any](ctx, a.kv, args[0]); err == nil && ok {
					var b []byte
					if b, err = json.Marshal(v); err == nil {
						out = string(b)
					}
				}
			} else {
				out, ok, err = a.kv.GetJSON(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Bool("for-write", false, wrap("read through the primary"))
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [key] [value]",
		Short: "Create or overwrite a key",
		Long: `Create or overwrite a key. The value is parsed as JSON; anything that
is not valid JSON is stored as a string. Use --string to skip parsing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asString, _ := cmd.Flags().GetBool("string")
			if err := a.kv.Add(ctxOf(cmd), args[0], a.parseValue(args[1], asString)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "added successfully")
			return nil
		},
	}
	cmd.Flags().Bool("string", false, wrap("store the value as a plain string"))
	return cmd
}

// parseValue keeps raw input for the bytes codec, which has no structure.
func (a *app) parseValue(s string, asString bool) any {
	if asString || a.kv.Codec().Name() == "bytes" {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [key]",
		Short: "Remove a key (absent keys are fine)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.kv.Remove(ctxOf(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "removed successfully")
			return nil
		},
	}
}

func (a *app) rmAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm-all",
		Short: "Remove every key of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to empty " + a.kv.Namespace() + " without --yes")
			}
			if err := a.kv.RemoveAll(ctxOf(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "collection emptied")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, wrap("confirm"))
	return cmd
}

func (a *app) keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Stream keys, optionally matching a regular expression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := ctxOf(cmd)
			pattern, _ := cmd.Flags().GetString("match")

			var (
				cur *mongokv.KeyCursor
				err error
			)
			if pattern != "" {
				cur, err = a.kv.KeysMatching(ctx, pattern)
			} else {
				cur, err = a.kv.Keys(ctx)
			}
			if err != nil {
				return err
			}
			for key, err := range cur.All(ctx) {
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
	cmd.Flags().String("match", "", wrap("regular expression over the key"))
	return cmd
}

func (a *app) sizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "List every key with its stored size in KB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sizes, err := a.kv.ListKeysWithSize(ctxOf(cmd))
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(sizes))
			for k := range sizes {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", k, sizes[k])
			}
			return nil
		},
	}
}

func (a *app) sizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "size [key]",
		Short: "Print the stored size of a key in KB (0 when absent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			decompressed, _ := cmd.Flags().GetBool("decompressed")

			var (
				n   int64
				err error
			)
			if decompressed {
				n, err = a.kv.DecompressedSizeKb(ctx, args[0])
			} else {
				n, err = a.kv.SizeKb(ctx, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().Bool("decompressed", false, wrap("report the size after decompression"))
	return cmd
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.kv.Ping(ctxOf(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pong")
			return nil
		},
	}
}

func (a *app) topologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Probe the deployment and print whether it is a replica set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.kv.Resolve(ctxOf(cmd), mongokv.ModePrimary)
			if err != nil {
				return err
			}
			t := a.kv.Topology()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "namespace:   %s\n", h.Namespace())
			fmt.Fprintf(w, "replica set: %t\n", t.ReplicaSet)
			if t.SetName != "" {
				fmt.Fprintf(w, "set name:    %s\n", t.SetName)
			}
			fmt.Fprintf(w, "write mode:  %s\n", h.Mode())
			return nil
		},
	}
}

func (a *app) metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Ping the store and print client metrics in Prometheus format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.kv.Ping(ctxOf(cmd)); err != nil {
				return err
			}
			a.kv.Metrics().WritePrometheus(cmd.OutOrStdout())
			return nil
		},
	}
}
