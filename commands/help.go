// commands/help.go
package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var accessLabels = map[Access]string{
	AccessEveryone: "一般",
	AccessAdmin:    "管理",
	AccessTester:   "テスター",
	AccessDev:      "開発者",
}

type HelpCommand struct {
	Registry *Registry
}

func (c *HelpCommand) GetCommandDef() Definition {
	return Definition{
		Name:         "help",
		Aliases:      []string{"h", "ajuda"},
		Description:  "Botのコマンド一覧を表示します",
		Usage:        "help [command]",
		AccessibleBy: AccessEveryone,
	}
}

func (c *HelpCommand) Handle(ctx *Context) error {
	if len(ctx.Args) > 0 {
		cmd, ok := c.Registry.Lookup(ctx.Args[0])
		if !ok {
			return ctx.Reply("❌ コマンド `%s` は見つかりませんでした。", ctx.Args[0])
		}
		return ctx.ReplyEmbed(c.detailEmbed(ctx.Prefix, cmd.GetCommandDef()))
	}
	return ctx.ReplyEmbed(c.listEmbed(ctx.Prefix))
}

func (c *HelpCommand) listEmbed(prefix string) *discordgo.MessageEmbed {
	categorized := make(map[string][]string)
	for _, cmd := range c.Registry.All() {
		def := cmd.GetCommandDef()
		category := accessLabels[def.AccessibleBy]
		if category == "" {
			category = "その他"
		}
		categorized[category] = append(categorized[category], fmt.Sprintf("`%s%s` - %s", prefix, def.Name, def.Description))
	}

	categories := make([]string, 0, len(categorized))
	for k := range categorized {
		categories = append(categories, k)
	}
	sort.Strings(categories)

	embed := &discordgo.MessageEmbed{
		Title:       "コマンド一覧",
		Description: fmt.Sprintf("`%shelp <command>` で詳細を表示します。", prefix),
		Color:       0x7289da,
	}
	for _, category := range categories {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("📂 %s", category),
			Value: strings.Join(categorized[category], "\n"),
		})
	}
	return embed
}

func (c *HelpCommand) detailEmbed(prefix string, def Definition) *discordgo.MessageEmbed {
	aliases := "なし"
	if len(def.Aliases) > 0 {
		aliases = strings.Join(def.Aliases, ", ")
	}
	return &discordgo.MessageEmbed{
		Title:       prefix + def.Name,
		Description: def.Description,
		Color:       0x7289da,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "使い方", Value: fmt.Sprintf("`%s%s`", prefix, def.Usage), Inline: true},
			{Name: "エイリアス", Value: aliases, Inline: true},
			{Name: "権限", Value: accessLabels[def.AccessibleBy], Inline: true},
		},
	}
}
