// commands/command.go
package commands

import (
	"fmt"

	"tanuki/interfaces"
	"tanuki/storage"

	"github.com/bwmarrin/discordgo"
)

// Access はコマンドを実行できる利用者の範囲です。
type Access string

const (
	AccessEveryone Access = "everyone"
	AccessAdmin    Access = "admin"
	AccessTester   Access = "tester"
	AccessDev      Access = "dev"
)

// Definition はコマンドの設定です。
type Definition struct {
	Name         string
	Aliases      []string
	Description  string
	Usage        string
	AccessibleBy Access
}

// CommandHandler は、すべてのプレフィックスコマンドが実装すべきインターフェースです。
type CommandHandler interface {
	GetCommandDef() Definition
	Handle(ctx *Context) error
}

// Context は1回のコマンド実行に必要な情報です。
type Context struct {
	Session interfaces.Messenger
	Message *discordgo.Message
	Args    []string
	Prefix  string
	IsAdmin bool
}

// IDs はエラー記録用にサーバー・ユーザー・メッセージのIDを返します。
func (c *Context) IDs() storage.ContextIDs {
	authorID := ""
	if c.Message.Author != nil {
		authorID = c.Message.Author.ID
	}
	return storage.IDs(c.Message.GuildID, authorID, c.Message.ID)
}

// Reply はコマンドが送信されたチャンネルにテキストを送ります。
func (c *Context) Reply(format string, args ...any) error {
	_, err := c.Session.ChannelMessageSend(c.Message.ChannelID, fmt.Sprintf(format, args...))
	return err
}

// ReplyEmbed はコマンドが送信されたチャンネルに Embed を送ります。
func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	_, err := c.Session.ChannelMessageSendEmbed(c.Message.ChannelID, embed)
	return err
}

// usageError はコマンドの使い方を返信します。
func usageError(ctx *Context, def Definition) error {
	return ctx.Reply("使い方: `%s%s`", ctx.Prefix, def.Usage)
}
