package commands

import (
	"errors"
	"fmt"
	"strings"

	"tanuki/interfaces"
	"tanuki/storage"

	"github.com/bwmarrin/discordgo"
)

const (
	errorsPerPage = 10
	maxStackField = 1000
)

// ErrorsCommand は開発者向けにエラーログを閲覧・削除します。
type ErrorsCommand struct {
	Errors *storage.ErrorStore
	Pager  Pager
	Log    interfaces.Logger
}

func (c *ErrorsCommand) GetCommandDef() Definition {
	return Definition{
		Name:         "errors",
		Aliases:      []string{"erros", "err"},
		Description:  "記録されたエラーログを管理します",
		Usage:        "errors <list | find <id> | show <file> | delete <file> | clear>",
		AccessibleBy: AccessDev,
	}
}

func (c *ErrorsCommand) Handle(ctx *Context) error {
	if len(ctx.Args) == 0 {
		return usageError(ctx, c.GetCommandDef())
	}
	switch strings.ToLower(ctx.Args[0]) {
	case "list", "ls":
		return c.list(ctx)
	case "find":
		if len(ctx.Args) < 2 {
			return usageError(ctx, c.GetCommandDef())
		}
		file, ok := c.Errors.FindByID(ctx.Args[1])
		if !ok {
			return ctx.Reply("❌ ID `%s` のエラーは見つかりませんでした。", ctx.Args[1])
		}
		return c.show(ctx, file)
	case "show":
		if len(ctx.Args) < 2 {
			return usageError(ctx, c.GetCommandDef())
		}
		return c.show(ctx, ctx.Args[1])
	case "delete", "rm":
		if len(ctx.Args) < 2 {
			return usageError(ctx, c.GetCommandDef())
		}
		if err := c.Errors.DeleteOne(ctx.Args[1]); err != nil {
			if errors.Is(err, storage.ErrInvalidFile) {
				return ctx.Reply("❌ 無効なファイルです: `%s`", ctx.Args[1])
			}
			return err
		}
		return ctx.Reply("🗑️ `%s` を削除しました。", ctx.Args[1])
	case "clear":
		results := c.Errors.ClearAll()
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return ctx.Reply("⚠️ %d件中%d件の削除に失敗しました。詳細はログを確認してください。", len(results), failed)
		}
		return ctx.Reply("🗑️ %d件のエラーログを削除しました。", len(results))
	default:
		return usageError(ctx, c.GetCommandDef())
	}
}

func (c *ErrorsCommand) list(ctx *Context) error {
	files := c.Errors.List()
	if len(files) == 0 {
		return ctx.Reply("✅ 記録されたエラーはありません。")
	}
	pages := (len(files) + errorsPerPage - 1) / errorsPerPage
	return c.Pager.Send(ctx.Message.ChannelID, pages, func(page int) *discordgo.MessageEmbed {
		return errorListPage(files, page, pages)
	})
}

// errorListPage は1始まりのページ番号に対応する一覧を作成します。
func errorListPage(files []string, page, pages int) *discordgo.MessageEmbed {
	start := (page - 1) * errorsPerPage
	end := min(start+errorsPerPage, len(files))
	var b strings.Builder
	for i, f := range files[start:end] {
		fmt.Fprintf(&b, "`%d.` %s\n", start+i+1, f)
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("エラーログ (%d件)", len(files)),
		Description: b.String(),
		Color:       0xf04747,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("ページ %d/%d", page, pages)},
	}
}

func (c *ErrorsCommand) show(ctx *Context, file string) error {
	rec, err := c.Errors.Read(file)
	if errors.Is(err, storage.ErrInvalidFile) {
		return ctx.Reply("❌ 無効なファイルです: `%s`", file)
	}
	if err != nil {
		c.Log.Warn("Failed to read error record", "error", err, "file", file)
		return ctx.Reply("❌ `%s` を読み込めませんでした。", file)
	}
	return ctx.ReplyEmbed(errorRecordEmbed(rec))
}

func errorRecordEmbed(rec *storage.ErrorRecord) *discordgo.MessageEmbed {
	msg := "なし"
	if rec.Msg != nil {
		msg = *rec.Msg
	}
	ids := storage.ContextIDs{}
	if rec.IDs != nil {
		ids = *rec.IDs
	}
	embed := &discordgo.MessageEmbed{
		Title:       rec.ThisFile,
		Description: fmt.Sprintf("```%s```", msg),
		Color:       0xf04747,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: fmt.Sprintf("`%s`", rec.ErrorID), Inline: false},
			{Name: "日時", Value: rec.Date, Inline: true},
			{Name: "サーバー-ユーザー-メッセージ", Value: ids.String(), Inline: true},
		},
	}
	if rec.Stack != nil {
		stack := truncate(*rec.Stack, maxStackField)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "スタック", Value: fmt.Sprintf("```%s```", stack)})
	}
	return embed
}

// truncate は s を最大 n 文字に切り詰め、切り詰めたときは末尾に … を付けます。
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "…"
		}
		count++
	}
	return s
}
