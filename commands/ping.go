package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

type PingCommand struct {
	StartTime time.Time
	Store     UsageStore
	Latency   func() time.Duration
}

func (c *PingCommand) GetCommandDef() Definition {
	return Definition{
		Name:         "ping",
		Description:  "ボットの応答速度と稼働時間を測定します",
		Usage:        "ping",
		AccessibleBy: AccessEveryone,
	}
}

func (c *PingCommand) Handle(ctx *Context) error {
	// データベースの応答時間を測定
	dbStart := time.Now()
	dbStatus := "✅ 正常"
	var err error
	if c.Store != nil {
		err = c.Store.PingDB()
	}
	dbLatency := time.Since(dbStart)
	if err != nil {
		dbStatus = "❌ 異常"
		dbLatency = 0
	}

	var gatewayLatency time.Duration
	if c.Latency != nil {
		gatewayLatency = c.Latency()
	}

	latencyColor := 0x43b581 // Green
	if gatewayLatency > 150*time.Millisecond {
		latencyColor = 0xfaa61a // Yellow
	}
	if gatewayLatency > 400*time.Millisecond || err != nil {
		latencyColor = 0xf04747 // Red
	}

	embed := &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: latencyColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ゲートウェイ", Value: fmt.Sprintf("```%s```", gatewayLatency), Inline: true},
			{Name: "データベース", Value: fmt.Sprintf("```%s (%s)```", dbStatus, dbLatency), Inline: true},
			{Name: "稼働時間", Value: fmt.Sprintf("```%s```", formatUptime(time.Since(c.StartTime))), Inline: false},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	return ctx.ReplyEmbed(embed)
}

// 稼働時間を「X日 Y時間 Z分」のような分かりやすい形式に変換するヘルパー関数
func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	return fmt.Sprintf("%d日 %d時間 %d分", days, h, m)
}
