package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tanuki/config"
	"tanuki/logger"
	"tanuki/storage"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ErrNotFound は指定した errorID のログが無いときに返されます。
var ErrNotFound = errors.New("no error log with that id")

type errorsOptions struct {
	root *RootOptions
	dir  string
}

// store は設定ファイルの errors_dir (または --dir) を使う ErrorStore を作成します。
func (o *errorsOptions) store(cmd *cobra.Command) (*storage.ErrorStore, error) {
	dir := o.dir
	if dir == "" {
		cfg, err := config.Load(o.root.ConfigPath)
		if err != nil {
			return nil, err
		}
		dir = cfg.Storage.ErrorsDir
	}
	log := logger.New(cmd.ErrOrStderr(), slog.LevelWarn)
	return storage.NewErrorStore(o.root.fs(), dir, log), nil
}

// NewErrorsCommand はエラーログを操作するコマンドを作成します。
func NewErrorsCommand(root *RootOptions) *cobra.Command {
	opts := &errorsOptions{root: root}
	cmd := &cobra.Command{
		Use:     "errors",
		Aliases: []string{"erros"},
		Short:   "Inspect and delete recorded error logs",
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "error log directory (default: storage.errors_dir)")

	cmd.AddCommand(newErrorsListCommand(opts))
	cmd.AddCommand(newErrorsFindCommand(opts))
	cmd.AddCommand(newErrorsShowCommand(opts))
	cmd.AddCommand(newErrorsDeleteCommand(opts))
	cmd.AddCommand(newErrorsClearCommand(opts))
	cmd.AddCommand(newErrorsPruneCommand(opts))
	cmd.AddCommand(newErrorsExportCommand(opts))
	return cmd
}

func newErrorsListCommand(opts *errorsOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List error log files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store(cmd)
			if err != nil {
				return err
			}
			for _, name := range store.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newErrorsFindCommand(opts *errorsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <errorID>",
		Short: "Print the file holding an error id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store(cmd)
			if err != nil {
				return err
			}
			name, ok := store.FindByID(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", ErrNotFound, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newErrorsShowCommand(opts *errorsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file|errorID>",
		Short: "Print one error log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store(cmd)
			if err != nil {
				return err
			}
			name := args[0]
			if found, ok := store.FindByID(name); ok {
				name = found
			}
			rec, err := store.Read(name)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}

func newErrorsDeleteCommand(opts *errorsOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <file>",
		Aliases: []string{"rm"},
		Short:   "Delete one error log",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store(cmd)
			if err != nil {
				return err
			}
			if err := store.DeleteOne(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}
}

func printResults(cmd *cobra.Command, results []storage.DeleteResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			cmd.PrintErrf("failed %s: %v\n", r.File, r.Err)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted", r.File)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d error logs could not be deleted", failed, len(results))
	}
	return nil
}

// archive は store の全件を path に zstd 圧縮のJSON Linesで書き出します。
func archive(cmd *cobra.Command, fs afero.Fs, store *storage.ErrorStore, path string) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	n, err := store.Archive(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("archive error logs: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "archived %d error logs to %s\n", n, path)
	return nil
}

func newErrorsClearCommand(opts *errorsOptions) *cobra.Command {
	var archivePath string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every error log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store(cmd)
			if err != nil {
				return err
			}
			if archivePath != "" {
				if err := archive(cmd, opts.root.fs(), store, archivePath); err != nil {
					return err
				}
			}
			return printResults(cmd, store.ClearAll())
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "write a .jsonl.zst archive before deleting")
	return cmd
}

func newErrorsExportCommand(opts *errorsOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every error log to a zstd-compressed JSON Lines file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store(cmd)
			if err != nil {
				return err
			}
			return archive(cmd, opts.root.fs(), store, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "errors.jsonl.zst", "output file")
	return cmd
}

func newErrorsPruneCommand(opts *errorsOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete error logs older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := opts.store(cmd)
			if err != nil {
				return err
			}
			return printResults(cmd, store.Prune(olderThan))
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age of the logs to delete")
	return cmd
}
