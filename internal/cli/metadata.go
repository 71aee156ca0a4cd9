package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrmdev/plugsim/internal/metadata"
)

// MetadataOptions holds flags for the metadata command group.
type MetadataOptions struct {
	*RootOptions
	DB string
}

// NewMetadataCommand creates the metadata command group: inspect and seed
// the persistent plural-collection-name cache.
func NewMetadataCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MetadataOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Manage the persistent entity metadata cache",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "plugsim-metadata.db", "path to the SQLite metadata cache")

	cmd.AddCommand(newMetadataSetCommand(opts))
	cmd.AddCommand(newMetadataGetCommand(opts))
	cmd.AddCommand(newMetadataListCommand(opts))
	return cmd
}

func newMetadataSetCommand(opts *MetadataOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <logical-name> <collection-name>",
		Short:         "Seed the plural collection name for an entity",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)
			store, err := metadata.OpenStore(opts.DB)
			if err != nil {
				f.Error(ErrCodeMetadataStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, "open metadata store", err)
			}
			defer store.Close()

			md := metadata.EntityMetadata{LogicalName: args[0], CollectionName: args[1]}
			if err := store.Put(cmd.Context(), md); err != nil {
				f.Error(ErrCodeMetadataStore, err.Error(), nil)
				return WrapExitError(ExitFailure, "put metadata", err)
			}
			if opts.Format == "json" {
				return f.Success(md)
			}
			return f.Success(fmt.Sprintf("%s -> %s", args[0], args[1]))
		},
	}
}

func newMetadataGetCommand(opts *MetadataOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <logical-name>",
		Short:         "Look up the cached plural collection name for an entity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)
			store, err := metadata.OpenStore(opts.DB)
			if err != nil {
				f.Error(ErrCodeMetadataStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, "open metadata store", err)
			}
			defer store.Close()

			md, err := store.Resolve(cmd.Context(), args[0])
			if err != nil {
				f.Error(ErrCodeMetadataStore, err.Error(), nil)
				return WrapExitError(ExitFailure, "resolve metadata", err)
			}
			if opts.Format == "json" {
				return f.Success(md)
			}
			return f.Success(fmt.Sprintf("%s -> %s", md.LogicalName, md.CollectionName))
		},
	}
}

func newMetadataListCommand(opts *MetadataOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all cached entity metadata entries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatterFor(opts.RootOptions, cmd)
			store, err := metadata.OpenStore(opts.DB)
			if err != nil {
				f.Error(ErrCodeMetadataStore, err.Error(), nil)
				return WrapExitError(ExitCommandError, "open metadata store", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				f.Error(ErrCodeMetadataStore, err.Error(), nil)
				return WrapExitError(ExitFailure, "list metadata", err)
			}
			if opts.Format == "json" {
				return f.Success(entries)
			}
			for _, md := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", md.LogicalName, md.CollectionName)
			}
			return nil
		},
	}
}

func formatterFor(rootOpts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
}
