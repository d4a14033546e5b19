package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/bwmarrin/discordgo"
)

// CalcCommand は数式を計算します。
type CalcCommand struct{}

func (c *CalcCommand) GetCommandDef() Definition {
	return Definition{
		Name:         "calc",
		Aliases:      []string{"calcular"},
		Description:  "数式を計算します",
		Usage:        "calc <数式> (例: (10 + 20) * 3 / 2)",
		AccessibleBy: AccessEveryone,
	}
}

// formatResult は govaluate の結果を表示用の文字列にします。整数なら小数点以下を消します。
func formatResult(v any) string {
	switch r := v.(type) {
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(r)
	default:
		return fmt.Sprint(r)
	}
}

func (c *CalcCommand) Handle(ctx *Context) error {
	if len(ctx.Args) == 0 {
		return usageError(ctx, c.GetCommandDef())
	}
	expressionStr := strings.Join(ctx.Args, " ")

	expression, err := govaluate.NewEvaluableExpression(expressionStr)
	if err != nil {
		return ctx.Reply("❌ 無効な数式です。もう一度確認してください。")
	}
	result, err := expression.Evaluate(nil)
	if err != nil {
		return ctx.Reply("❌ 計算中にエラーが発生しました。")
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Color: 0x2ECC71, // 緑色
		Fields: []*discordgo.MessageEmbedField{
			{Name: "問題", Value: fmt.Sprintf("```%s```", expressionStr)},
			{Name: "答え", Value: fmt.Sprintf("```%s```", formatResult(result))},
		},
	})
}
