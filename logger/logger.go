package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options はログ出力先の設定です。
type Options struct {
	File       string // ログファイル名。空ならコンソールのみ
	MaxSize    int    // 1ファイルあたりの最大サイズ (MB)
	MaxBackups int    // 保持する古いログの最大数
	MaxAge     int    // 古いログを保持する最大日数
	Compress   bool   // 古いログをgzipで圧縮
	Debug      bool
}

// Logger は slog をラップし、interfaces.Logger を満たします。
type Logger struct {
	slog *slog.Logger
	file *lumberjack.Logger
}

// Init はコンソールとローテーション付きファイルの両方に出力するロガーを作成します。
func Init(opts Options) *Logger {
	var out io.Writer = os.Stdout
	var logFile *lumberjack.Logger
	if opts.File != "" {
		logFile = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
		out = io.MultiWriter(os.Stdout, logFile)
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	l := New(out, level)
	l.file = logFile
	return l
}

// New は任意の Writer に JSON 形式で出力するロガーを作成します。テストでも使います。
func New(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		slog: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource: true,
			Level:     level,
		})),
	}
}

// Debugレベルのログを出力
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Infoレベルのログを出力
// 例: log.Info("Botが起動しました", "version", "1.2.3")
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warnレベルのログを出力
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Errorレベルのログを出力
// 例: log.Error("コマンドの実行に失敗", "error", err, "command", "ping")
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// Fatalレベルのログを出力（出力後にプログラムを終了）
func (l *Logger) Fatal(msg string, args ...any) {
	l.slog.Error(msg, args...)
	l.Close()
	os.Exit(1)
}

// Close はログファイルを閉じます。
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
