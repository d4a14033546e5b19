package handlers

import (
	"fmt"
	"runtime/debug"
	"strings"

	"tanuki/commands"
	"tanuki/config"
	"tanuki/interfaces"
	"tanuki/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// PrefixResolver はサーバーごとのプレフィックスを返します。*storage.GuildStore が実装します。
type PrefixResolver interface {
	Prefix(guildID, fallback string) string
}

// AdminCheck はユーザーがチャンネルで管理者権限を持つかを返します。
type AdminCheck func(userID, channelID string) bool

// PanicError はコマンド実行中の panic をエラーとして包みます。
type PanicError struct {
	Value any
	stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Stack は panic 発生時のスタックトレースです。
func (e *PanicError) Stack() []byte { return e.stack }

// MessageHandler はプレフィックス付きのメッセージをコマンドに振り分けます。
type MessageHandler struct {
	Log      interfaces.Logger
	Errors   storage.Reporter
	Registry *commands.Registry
	Guilds   PrefixResolver
	Config   *config.Config
}

// ParseCommand はメッセージからコマンド名と引数を取り出します。
// コマンド名は最初の単語からプレフィックスを除いたものなので "! ping" は ping になりません。
// プレフィックスで始まらない、またはコマンド名が空なら ok は false です。
func ParseCommand(content, prefix string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], prefix) {
		return "", nil, false
	}
	name = strings.ToLower(strings.TrimPrefix(fields[0], prefix))
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}

// OnMessageCreate は discordgo のイベントハンドラです。
func (h *MessageHandler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.Route(s, m.Message, func(userID, channelID string) bool {
		if m.GuildID == "" || s.State == nil {
			return false
		}
		perms, err := s.State.UserChannelPermissions(userID, channelID)
		if err != nil {
			return false
		}
		return perms&discordgo.PermissionAdministrator != 0
	})
}

// Route はメッセージを解析し、権限を確認してからコマンドを実行します。
// コマンドとして扱ったときは true を返します。
func (h *MessageHandler) Route(msgr interfaces.Messenger, m *discordgo.Message, isAdmin AdminCheck) bool {
	if m.Author == nil || m.Author.Bot {
		return false
	}

	prefix := h.Config.Bot.Prefix
	if h.Guilds != nil {
		prefix = h.Guilds.Prefix(m.GuildID, prefix)
	}
	name, args, ok := ParseCommand(m.Content, prefix)
	if !ok {
		return false
	}
	cmd, ok := h.Registry.Lookup(name)
	if !ok {
		return false
	}

	admin := h.Config.IsDev(m.Author.ID) || (isAdmin != nil && isAdmin(m.Author.ID, m.ChannelID))
	ctx := &commands.Context{
		Session: msgr,
		Message: m,
		Args:    args,
		Prefix:  prefix,
		IsAdmin: admin,
	}

	def := cmd.GetCommandDef()
	if !h.allowed(def.AccessibleBy, m.Author.ID, admin) {
		if err := ctx.Reply("このコマンドを実行する権限がありません。"); err != nil {
			h.Log.Warn("Failed to send permission message", "error", err, "command", def.Name)
		}
		return true
	}

	h.Dispatch(msgr, ctx, cmd)
	return true
}

func (h *MessageHandler) allowed(access commands.Access, userID string, admin bool) bool {
	switch access {
	case commands.AccessDev:
		return h.Config.IsDev(userID)
	case commands.AccessTester:
		return h.Config.IsDev(userID) || h.Config.IsTester(userID)
	case commands.AccessAdmin:
		return admin
	default:
		return true
	}
}

// Dispatch はコマンドを実行します。エラーや panic は記録し、利用者には汎用のメッセージを返します。
func (h *MessageHandler) Dispatch(msgr interfaces.Messenger, ctx *commands.Context, cmd commands.CommandHandler) {
	def := cmd.GetCommandDef()
	invocation := uuid.NewString()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, stack: debug.Stack()}
			}
		}()
		return cmd.Handle(ctx)
	}()
	if err == nil {
		return
	}

	h.Log.Warn("Command failed", "command", def.Name, "invocation", invocation, "error", err)
	h.Errors.Report(err, def.Name, ctx.IDs())
	embed := &discordgo.MessageEmbed{
		Title:       "⚠️ 予期しないエラー",
		Description: fmt.Sprintf("`%s%s` の実行中に予期しないエラーが発生しました。\nエラーは記録され、開発チームが確認します。", ctx.Prefix, def.Name),
		Color:       ColorRed,
		Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + invocation},
	}
	if _, sendErr := msgr.ChannelMessageSendEmbed(ctx.Message.ChannelID, embed); sendErr != nil {
		h.Log.Error("Failed to send error embed", "error", sendErr, "command", def.Name)
	}
}
