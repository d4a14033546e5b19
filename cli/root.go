// Package cli はコマンドラインのエントリポイントです。
package cli

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// RootOptions はすべてのサブコマンドで共通のフラグです。
type RootOptions struct {
	ConfigPath string
	// Fs はエラーログを読み書きするファイルシステムです。nil なら OS のファイルシステムを使います。
	Fs afero.Fs
}

func (o *RootOptions) fs() afero.Fs {
	if o.Fs == nil {
		return afero.NewOsFs()
	}
	return o.Fs
}

// NewRootCommand は tanuki のルートコマンドを作成します。サブコマンドなしで実行すると Bot を起動します。
func NewRootCommand(opts *RootOptions) *cobra.Command {
	run := NewRunCommand(opts)

	cmd := &cobra.Command{
		Use:           "tanuki",
		Short:         "tanuki - Discord bot",
		Long:          "A prefix-command Discord bot that keeps every error as its own JSON file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config.yaml")

	cmd.AddCommand(run)
	cmd.AddCommand(NewErrorsCommand(opts))
	return cmd
}

// Execute はルートコマンドを実行し、失敗したら終了コード1で終了します。
func Execute() {
	cmd := NewRootCommand(&RootOptions{})
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
