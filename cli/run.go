package cli

import (
	"tanuki/bot"
	"tanuki/config"
	"tanuki/logger"

	"github.com/spf13/cobra"
)

// NewRunCommand は Bot を起動するコマンドを作成します。
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			log := logger.Init(logger.Options{
				File:       cfg.Log.File,
				MaxSize:    cfg.Log.MaxSize,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAge:     cfg.Log.MaxAge,
				Compress:   cfg.Log.Compress,
				Debug:      cfg.Log.Debug,
			})
			defer log.Close()

			b, err := bot.New(cfg, log)
			if err != nil {
				log.Error("Botの初期化に失敗しました", "error", err)
				return err
			}
			return b.Start()
		},
	}
}
