package handlers

import (
	"tanuki/interfaces"

	"github.com/bwmarrin/discordgo"
)

// StatusUpdater は discordgo.Session のステータス更新部分です。
type StatusUpdater interface {
	UpdateWatchStatus(idle int, name string) error
}

// ActivityText は「視聴中」に表示する文字列を返します。activity が空ならヘルプコマンドを案内します。
func ActivityText(prefix, activity string) string {
	if activity != "" {
		return activity
	}
	return prefix + "help"
}

// ReadyHandler は接続完了時にログを出し、ステータスを設定します。
type ReadyHandler struct {
	Log      interfaces.Logger
	Prefix   string
	Activity string
}

// OnReady は discordgo のイベントハンドラです。
func (h *ReadyHandler) OnReady(s *discordgo.Session, r *discordgo.Ready) {
	h.Ready(s, r.User)
}

// Ready はログを出してステータスを更新します。
func (h *ReadyHandler) Ready(s StatusUpdater, user *discordgo.User) {
	if user != nil {
		h.Log.Info("Bot is ready!", "user", user.String())
	}
	if err := s.UpdateWatchStatus(0, ActivityText(h.Prefix, h.Activity)); err != nil {
		h.Log.Warn("Failed to update status", "error", err)
	}
}
