// Package testutil はテスト用の偽 Discord セッションを提供します。
package testutil

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Reaction はリアクション操作の記録です。
type Reaction struct {
	ChannelID, MessageID, Emoji, UserID string
}

// Messenger は interfaces.Messenger を満たし、送信内容をメモリに記録します。
type Messenger struct {
	mu        sync.Mutex
	nextID    int
	Texts     []string
	Embeds    []*discordgo.MessageEmbed
	Edits     []*discordgo.MessageEmbed
	Added     []Reaction
	Removed   []Reaction
	ClearedOn []string
	// SendErr が設定されていれば送信系の呼び出しはこのエラーを返します。
	SendErr error
}

func (m *Messenger) message(channelID string) *discordgo.Message {
	m.nextID++
	return &discordgo.Message{ID: "m" + strconv.Itoa(m.nextID), ChannelID: channelID}
}

func (m *Messenger) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return nil, m.SendErr
	}
	m.Texts = append(m.Texts, content)
	return m.message(channelID), nil
}

func (m *Messenger) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return nil, m.SendErr
	}
	m.Embeds = append(m.Embeds, embed)
	return m.message(channelID), nil
}

func (m *Messenger) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, embed)
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (m *Messenger) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Added = append(m.Added, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emojiID})
	return nil
}

func (m *Messenger) MessageReactionRemove(channelID, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emojiID, UserID: userID})
	return nil
}

func (m *Messenger) MessageReactionsRemoveAll(channelID, messageID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearedOn = append(m.ClearedOn, messageID)
	return nil
}

// LastText は最後に送信されたテキストを返します。
func (m *Messenger) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Texts) == 0 {
		return ""
	}
	return m.Texts[len(m.Texts)-1]
}

// LastEmbed は最後に送信された Embed を返します。
func (m *Messenger) LastEmbed() *discordgo.MessageEmbed {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Embeds) == 0 {
		return nil
	}
	return m.Embeds[len(m.Embeds)-1]
}

// Snapshot は現在の記録をロックした状態で fn に渡します。
func (m *Messenger) Snapshot(fn func(m *Messenger)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}
