package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/safar/safar/backend/go-services/internal/config"
	"github.com/safar/safar/backend/go-services/internal/kv"
	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/tokens"
	"github.com/safar/safar/backend/go-services/internal/userstore"
)

// openStore opens the configured backend. Callers must run the returned func.
func openStore(ctx context.Context) (kv.Backend, *config.Config, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	b, closeFn, err := kv.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return b, cfg, closeFn, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storectl",
		Short: "Inspect and maintain the local key/value store",
		Long: `storectl operates on the backend selected by STORE_BACKEND
(sqlite, redis, mongo or memory) using the same environment as the server.`,
		SilenceUsage: true,
	}
	root.AddCommand(keysCmd(), getCmd(), clearUserCmd(), clearGlobalCmd(), migrateCmd(), issueTokenCmd())
	return root
}

func keysCmd() *cobra.Command {
	var user, prefix string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, _, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			if user != "" {
				p, ok := userstore.NamespacePrefix(user)
				if !ok {
					return fmt.Errorf("invalid user id %q", user)
				}
				prefix = p
			}
			keys, err := b.Keys(cmd.Context())
			if err != nil {
				return err
			}
			sort.Strings(keys)
			for _, k := range keys {
				if strings.HasPrefix(k, prefix) {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only keys in this user's namespace")
	cmd.Flags().StringVar(&prefix, "prefix", "", "only keys with this prefix")
	return cmd
}

func getCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a raw value; with --user the key is logical",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			key := args[0]
			if user != "" {
				k, ok := userstore.DeriveKey(key, user)
				if !ok {
					return fmt.Errorf("invalid user id %q", user)
				}
				key = k
			}
			v, ok, err := b.GetItem(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "resolve the key in this user's namespace")
	return cmd
}

func clearUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-user <userId>",
		Short: "Remove every record in a user's namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			n := userstore.New(b).ClearAllForUser(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d key(s)\n", n)
			return nil
		},
	}
}

func clearGlobalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-global",
		Short: "Remove legacy unpartitioned records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, _, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			n := userstore.New(b).ClearGlobalKeys(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d legacy key(s)\n", n)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <userId>",
		Short: "Fold legacy records into a user's namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			rep := userstore.New(b).MigrateGlobalToUser(cmd.Context(), args[0])
			out := cmd.OutOrStdout()
			for _, k := range rep.Migrated {
				fmt.Fprintf(out, "migrated %s\n", k)
			}
			skipped := make([]string, 0, len(rep.Skipped))
			for k := range rep.Skipped {
				skipped = append(skipped, k)
			}
			sort.Strings(skipped)
			for _, k := range skipped {
				fmt.Fprintf(out, "skipped %s (%s)\n", k, rep.Skipped[k])
			}
			if !rep.Done() {
				return errors.New("some legacy keys were not migrated")
			}
			return nil
		},
	}
}

func issueTokenCmd() *cobra.Command {
	var sub, email, name string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign a development ID token with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if sub == "" {
				return errors.New("--sub is required")
			}
			u := &models.User{ID: sub, Email: email, Username: name, FullName: name}
			tok, err := tokens.IssueIDToken(cfg.JWT.Secret, cfg.JWT.Issuer, u, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
