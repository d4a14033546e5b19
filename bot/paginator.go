package bot

import (
	"sync"
	"time"

	"tanuki/interfaces"

	"github.com/bwmarrin/discordgo"
)

const (
	emojiPrev = "⬅️"
	emojiNext = "➡️"

	// DefaultPageIdle は最後の操作からページ送りを終了するまでの時間です。
	DefaultPageIdle = 30 * time.Second
)

// NextPage は1始まりのページ番号を前後に1つ送ります。端では反対側に回り込みます。
func NextPage(page, size int, forward bool) int {
	step := size - 2
	if forward {
		step = 0
	}
	return (page+step)%size + 1
}

type pageSession struct {
	channelID string
	page      int
	size      int
	render    func(page int) *discordgo.MessageEmbed
	collected int
	timer     *time.Timer
}

// Paginator は ⬅️ / ➡️ のリアクションでメッセージのページを切り替えます。
type Paginator struct {
	session  interfaces.Messenger
	log      interfaces.Logger
	idle     time.Duration
	mu       sync.Mutex
	sessions map[string]*pageSession // Key: MessageID
}

func NewPaginator(session interfaces.Messenger, log interfaces.Logger, idle time.Duration) *Paginator {
	return &Paginator{
		session:  session,
		log:      log,
		idle:     idle,
		sessions: make(map[string]*pageSession),
	}
}

func renderPage(render func(int) *discordgo.MessageEmbed, page int) *discordgo.MessageEmbed {
	if embed := render(page); embed != nil {
		return embed
	}
	return &discordgo.MessageEmbed{Description: "nill"}
}

// Send は1ページ目を送信します。2ページ以上あればリアクションを付けて操作を待ちます。
func (p *Paginator) Send(channelID string, size int, render func(page int) *discordgo.MessageEmbed) error {
	msg, err := p.session.ChannelMessageSendEmbed(channelID, renderPage(render, 1))
	if err != nil {
		return err
	}
	if size <= 1 {
		return nil
	}
	for _, emoji := range []string{emojiPrev, emojiNext} {
		if err := p.session.MessageReactionAdd(channelID, msg.ID, emoji); err != nil {
			p.log.Error("Failed to add page reaction", "error", err, "messageID", msg.ID)
			return nil
		}
	}

	ps := &pageSession{channelID: channelID, page: 1, size: size, render: render}
	p.mu.Lock()
	p.sessions[msg.ID] = ps
	ps.timer = time.AfterFunc(p.idle, func() { p.end(msg.ID) })
	p.mu.Unlock()
	return nil
}

// OnReactionAdd は discordgo のイベントハンドラです。
func (p *Paginator) OnReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}
	p.Turn(r.MessageID, r.Emoji.Name, r.UserID)
}

// Turn は利用者のリアクションに応じてページを切り替えます。対象外のリアクションは無視します。
func (p *Paginator) Turn(messageID, emoji, userID string) bool {
	if emoji != emojiPrev && emoji != emojiNext {
		return false
	}

	p.mu.Lock()
	ps, ok := p.sessions[messageID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	ps.page = NextPage(ps.page, ps.size, emoji == emojiNext)
	ps.collected++
	ps.timer.Reset(p.idle)
	page, channelID, render := ps.page, ps.channelID, ps.render
	p.mu.Unlock()

	if _, err := p.session.ChannelMessageEditEmbed(channelID, messageID, renderPage(render, page)); err != nil {
		p.log.Error("Failed to edit page", "error", err, "messageID", messageID)
	}
	if err := p.session.MessageReactionRemove(channelID, messageID, emoji, userID); err != nil {
		p.log.Warn("Failed to remove user reaction", "error", err, "messageID", messageID)
	}
	return true
}

// end はページ送りを終了します。一度も操作されなかった場合はリアクションを外します。
func (p *Paginator) end(messageID string) {
	p.mu.Lock()
	ps, ok := p.sessions[messageID]
	delete(p.sessions, messageID)
	p.mu.Unlock()
	if !ok || ps.collected > 0 {
		return
	}
	if err := p.session.MessageReactionsRemoveAll(ps.channelID, messageID); err != nil {
		p.log.Warn("Failed to clear page reactions", "error", err, "messageID", messageID)
	}
}

// Active は操作を待っているメッセージの数を返します。
func (p *Paginator) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
