package commands

import (
	"strings"
	"unicode/utf8"

	"tanuki/interfaces"
	"tanuki/storage"
)

const maxPrefixLength = 5

// ConfigCommand はサーバーごとの設定を変更します。
type ConfigCommand struct {
	Guilds *storage.GuildStore
	Log    interfaces.Logger
}

func (c *ConfigCommand) GetCommandDef() Definition {
	return Definition{
		Name:         "config",
		Description:  "ボットの設定を変更します",
		Usage:        "config prefix <new prefix>",
		AccessibleBy: AccessAdmin,
	}
}

func (c *ConfigCommand) Handle(ctx *Context) error {
	if ctx.Message.GuildID == "" {
		return ctx.Reply("❌ このコマンドはサーバー内でのみ使用できます。")
	}
	if len(ctx.Args) == 0 {
		return ctx.Reply("⚙️ 現在のプレフィックス: `%s`", ctx.Prefix)
	}

	switch strings.ToLower(ctx.Args[0]) {
	case "prefix":
		if len(ctx.Args) < 2 {
			return usageError(ctx, c.GetCommandDef())
		}
		prefix := ctx.Args[1]
		if utf8.RuneCountInString(prefix) > maxPrefixLength {
			return ctx.Reply("❌ プレフィックスは%d文字以内にしてください。", maxPrefixLength)
		}
		written, err := c.Guilds.SetPrefix(ctx.Message.GuildID, prefix)
		if err != nil {
			return err
		}
		if !written {
			c.Log.Warn("Guild settings were not written", "guildID", ctx.Message.GuildID)
			return ctx.Reply("❌ 設定を保存できませんでした。")
		}
		return ctx.Reply("✅ プレフィックスを `%s` に変更しました。", prefix)
	default:
		return usageError(ctx, c.GetCommandDef())
	}
}
