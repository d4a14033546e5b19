package bot

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tanuki/commands"
	"tanuki/config"
	"tanuki/handlers"
	"tanuki/interfaces"
	"tanuki/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
)

// Bot はDiscordボットのコアな状態とロジックを管理します。
type Bot struct {
	Session   *discordgo.Session
	cfg       *config.Config
	log       interfaces.Logger
	errors    *storage.ErrorStore
	guilds    *storage.GuildStore
	dbStore   *storage.DBStore
	scheduler *cron.Cron
	paginator *Paginator
	registry  *commands.Registry
	startTime time.Time
}

// New は新しいBotインスタンスを作成します。
func New(cfg *config.Config, log interfaces.Logger) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	dg.State = discordgo.NewState()
	dg.State.MaxMessageCount = 200
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions | discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	fs := afero.NewOsFs()
	errStore := storage.NewErrorStore(fs, cfg.Storage.ErrorsDir, log)
	guilds, err := storage.NewGuildStore(storage.NewDocumentStore(fs, errStore), cfg.Storage.GuildsFile)
	if err != nil {
		return nil, fmt.Errorf("open guild settings: %w", err)
	}

	dbStore, err := storage.NewDBStore(cfg.Storage.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	b := &Bot{
		Session:   dg,
		cfg:       cfg,
		log:       log,
		errors:    errStore,
		guilds:    guilds,
		dbStore:   dbStore,
		scheduler: cron.New(),
		paginator: NewPaginator(dg, log, DefaultPageIdle),
		startTime: time.Now(),
	}

	b.registry, err = commands.RegisterCommands(&commands.AppContext{
		Log:       log,
		Config:    cfg,
		Errors:    errStore,
		Guilds:    guilds,
		Store:     dbStore,
		Pager:     b.paginator,
		Latency:   dg.HeartbeatLatency,
		StartTime: b.startTime,
	})
	if err != nil {
		dbStore.Close()
		return nil, err
	}
	return b, nil
}

// Start はBotを起動し、Discordに接続します。シグナルを受け取るまで戻りません。
func (b *Bot) Start() error {
	ready := &handlers.ReadyHandler{Log: b.log, Prefix: b.cfg.Bot.Prefix, Activity: b.cfg.Bot.Activity}
	messages := &handlers.MessageHandler{
		Log:      b.log,
		Errors:   b.errors,
		Registry: b.registry,
		Guilds:   b.guilds,
		Config:   b.cfg,
	}
	b.Session.AddHandler(ready.OnReady)
	b.Session.AddHandler(messages.OnMessageCreate)
	b.Session.AddHandler(b.paginator.OnReactionAdd)

	if err := b.Session.Open(); err != nil {
		b.dbStore.Close()
		return err
	}
	defer b.Session.Close()
	defer b.dbStore.Close()

	if _, err := scheduleRetention(b.scheduler, b.errors, b.cfg.Retention.MaxAge, b.cfg.Retention.Schedule, b.log); err != nil {
		b.log.Error("Failed to schedule error log retention", "error", err)
	}
	b.scheduler.Start()
	defer b.scheduler.Stop()

	b.log.Info("Discord Botが起動しました。Ctrl+Cで終了します。", "prefix", b.cfg.Bot.Prefix)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	b.log.Info("Botをシャットダウンします...")
	return nil
}

// Pruner は古いエラーログを削除します。*storage.ErrorStore が実装します。
type Pruner interface {
	Prune(maxAge time.Duration) []storage.DeleteResult
}

// scheduleRetention は古いエラーログを定期的に削除するジョブを登録します。
// maxAge が0以下なら何も登録せず false を返します。
func scheduleRetention(scheduler interfaces.Scheduler, store Pruner, maxAge time.Duration, spec string, log interfaces.Logger) (bool, error) {
	if maxAge <= 0 {
		return false, nil
	}
	_, err := scheduler.AddFunc(spec, func() {
		results := store.Prune(maxAge)
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if len(results) > 0 {
			log.Info("Pruned old error logs", "deleted", len(results)-failed, "failed", failed, "maxAge", maxAge.String())
		}
	})
	if err != nil {
		return false, fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}
	return true, nil
}
