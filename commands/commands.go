package commands

import (
	"time"

	"tanuki/config"
	"tanuki/interfaces"
	"tanuki/storage"

	"github.com/bwmarrin/discordgo"
)

// UsageStore はコマンドの利用統計を保存するストアです。
type UsageStore interface {
	PingDB() error
	IncrementCommandUsage(name string) error
	GetCommandUsage(limit int) ([]storage.CommandUsage, error)
}

// Pager はリアクションでページを送れるメッセージを送信します。
type Pager interface {
	Send(channelID string, size int, render func(page int) *discordgo.MessageEmbed) error
}

// AppContext provides dependencies to commands.
type AppContext struct {
	Log       interfaces.Logger
	Config    *config.Config
	Errors    *storage.ErrorStore
	Guilds    *storage.GuildStore
	Store     UsageStore
	Pager     Pager
	Latency   func() time.Duration
	StartTime time.Time
}

// RegisterCommands initializes all command handlers and returns them in a registry.
func RegisterCommands(app *AppContext) (*Registry, error) {
	registry := NewRegistry()

	// To add a new command, simply add it to this list.
	commands := []CommandHandler{
		&HelpCommand{Registry: registry},
		&PingCommand{StartTime: app.StartTime, Store: app.Store, Latency: app.Latency},
		&ConfigCommand{Guilds: app.Guilds, Log: app.Log},
		&ErrorsCommand{Errors: app.Errors, Pager: app.Pager, Log: app.Log},
		&StatsCommand{Store: app.Store},
		&CalcCommand{},
	}

	for _, cmd := range commands {
		wrapped := &CommandUsageWrapper{CommandHandler: cmd, Store: app.Store, Log: app.Log}
		if err := registry.Register(wrapped); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// CommandUsageWrapper は、コマンドの実行をラップして使用状況を記録します。
type CommandUsageWrapper struct {
	CommandHandler
	Store UsageStore
	Log   interfaces.Logger
}

// Handle は、元のハンドラを呼び出す前に使用状況を記録します。
func (w *CommandUsageWrapper) Handle(ctx *Context) error {
	if w.Store != nil {
		name := w.CommandHandler.GetCommandDef().Name
		if err := w.Store.IncrementCommandUsage(name); err != nil {
			w.Log.Warn("Failed to record command usage", "error", err, "command", name)
		}
	}
	return w.CommandHandler.Handle(ctx)
}
