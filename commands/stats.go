package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const statsLimit = 15

// StatsCommand はコマンドの利用回数ランキングを表示します。
type StatsCommand struct {
	Store UsageStore
}

func (c *StatsCommand) GetCommandDef() Definition {
	return Definition{
		Name:         "stats",
		Description:  "コマンドの利用統計を表示します",
		Usage:        "stats",
		AccessibleBy: AccessTester,
	}
}

func (c *StatsCommand) Handle(ctx *Context) error {
	usage, err := c.Store.GetCommandUsage(statsLimit)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		return ctx.Reply("まだコマンドは使われていません。")
	}

	var b strings.Builder
	for i, u := range usage {
		fmt.Fprintf(&b, "`%2d.` **%s** - %d回\n", i+1, u.Name, u.Count)
	}
	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "📊 コマンド利用統計",
		Description: b.String(),
		Color:       0x3498db,
	})
}
