package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xrmdev/plugsim/internal/config"
	"github.com/xrmdev/plugsim/internal/form"
	"github.com/xrmdev/plugsim/internal/metadata"
	"github.com/xrmdev/plugsim/internal/session"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Message     string
	Stage       string
	Show        string
	Export      string
	MetadataDB  string
	Collections []string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <capture-file>",
		Short: "Generate a simulated plugin execution context from a form capture",
		Long: `Generate a simulated plugin execution context from a form capture.

The capture file is a YAML or JSON document describing the live form state:
record identity plus per-field value, kind, dirty flag, and optional
form-load value.

Examples:
  plugsim generate account.yaml --message update --stage post
  plugsim generate account.yaml --message delete --export webapi
  plugsim generate account.yaml --export csharp > Account_Update_Test.cs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Message, "message", "m", "create", "message to simulate (create|update|delete)")
	cmd.Flags().StringVarP(&opts.Stage, "stage", "s", "pre", "pipeline stage (pre|post)")
	cmd.Flags().StringVar(&opts.Show, "show", "sections", "what to print (sections|json)")
	cmd.Flags().StringVar(&opts.Export, "export", "", "export format instead of display (webapi|csharp)")
	cmd.Flags().StringVar(&opts.MetadataDB, "metadata-db", "", "SQLite metadata cache for plural collection names")
	cmd.Flags().StringArrayVar(&opts.Collections, "collection", nil, "static collection name seed, entity=plural (repeatable)")

	return cmd
}

func runGenerate(opts *GenerateOptions, capturePath string, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	consts, err := config.Load(opts.Constants)
	if err != nil {
		f.Error(ErrCodeConstants, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid constants", err)
	}

	capture, err := form.Load(capturePath)
	if err != nil {
		f.Error(ErrCodeCaptureLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid capture", err)
	}
	f.VerboseLog("loaded capture: entity=%s fields=%d", capture.Entity.LogicalName, len(capture.Fields))

	resolver, cleanup, err := buildResolver(opts)
	if err != nil {
		f.Error(ErrCodeMetadataStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "metadata store", err)
	}
	defer cleanup()

	sess := session.New(consts, resolver)
	defer sess.Close()

	messageName, err := resolveMessage(opts.Message, consts)
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid message", err)
	}
	stage, err := resolveStage(opts.Stage, consts)
	if err != nil {
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid stage", err)
	}

	_, err = sess.Generate(messageName, stage, capture.Accessors(), capture.Identity())
	if err != nil {
		if session.IsNoChanges(err) {
			// Guidance, not a failure: there is simply nothing to simulate.
			return f.Guidance("No fields have been changed. Modify a field and generate again.")
		}
		f.Error(ErrCodeGenerateFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "generation refused", err)
	}

	switch opts.Export {
	case "":
		return printContext(f, sess, opts.Show)
	case "webapi":
		export, err := sess.ExportWebAPI(cmd.Context())
		if err != nil {
			f.Error(ErrCodeExportFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, "web api export", err)
		}
		if opts.Format == "json" {
			return f.Success(export)
		}
		// Text mode still emits the payload itself as JSON; the artifact
		// is meant to be pasted into an HTTP client.
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			f.Error(ErrCodeExportFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, "web api export", err)
		}
		return f.Success(string(data))
	case "csharp":
		snippet, err := sess.ExportSnippet()
		if err != nil {
			f.Error(ErrCodeExportFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, "snippet export", err)
		}
		return f.Success(snippet)
	default:
		err := fmt.Errorf("invalid export %q: must be webapi or csharp", opts.Export)
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid export", err)
	}
}

func printContext(f *OutputFormatter, sess *session.Session, show string) error {
	switch show {
	case "json":
		doc, err := sess.ContextJSON()
		if err != nil {
			f.Error(ErrCodeExportFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, "render context", err)
		}
		return f.Success(doc)
	case "sections":
		sections, err := sess.Sections()
		if err != nil {
			f.Error(ErrCodeExportFailed, err.Error(), nil)
			return WrapExitError(ExitFailure, "render context", err)
		}
		if f.Format == "json" {
			return f.Success(sections)
		}
		f.Section("Target", sections.Target)
		f.Section("Pre-Image", sections.PreImage)
		f.Section("Post-Image", sections.PostImage)
		return nil
	default:
		err := fmt.Errorf("invalid show %q: must be sections or json", show)
		f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid show", err)
	}
}

// buildResolver assembles the collection-name resolver from --collection
// seeds and the optional persistent metadata cache. Returns a cleanup func
// closing the store.
func buildResolver(opts *GenerateOptions) (metadata.Resolver, func(), error) {
	cleanup := func() {}

	static := metadata.StaticResolver{}
	for _, seed := range opts.Collections {
		entity, plural, ok := strings.Cut(seed, "=")
		if !ok || entity == "" || plural == "" {
			return nil, cleanup, fmt.Errorf("invalid --collection %q: want entity=plural", seed)
		}
		static[strings.ToLower(entity)] = plural
	}

	chain := metadata.Chain{}
	if len(static) > 0 {
		chain = append(chain, static)
	}
	if opts.MetadataDB != "" {
		store, err := metadata.OpenStore(opts.MetadataDB)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { store.Close() }
		chain = append(chain, store)
	}
	if len(chain) == 0 {
		return nil, cleanup, nil
	}
	return chain, cleanup, nil
}

func resolveMessage(s string, consts config.Constants) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return consts.Messages.Create, nil
	case "update":
		return consts.Messages.Update, nil
	case "delete":
		return consts.Messages.Delete, nil
	default:
		return "", fmt.Errorf("invalid message %q: must be create, update, or delete", s)
	}
}

func resolveStage(s string, consts config.Constants) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pre", "preoperation", "pre-operation":
		return consts.Stages.PreOperation, nil
	case "post", "postoperation", "post-operation":
		return consts.Stages.PostOperation, nil
	default:
		return 0, fmt.Errorf("invalid stage %q: must be pre or post", s)
	}
}
