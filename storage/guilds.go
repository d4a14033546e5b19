package storage

// GuildSettings はサーバーごとの設定です。
type GuildSettings struct {
	Prefix string `json:"prefix,omitempty"`
}

// GuildStore はサーバー設定を1つのJSONドキュメント (Key: GuildID) として保存します。
type GuildStore struct {
	docs *DocumentStore
	path string
}

// NewGuildStore はドキュメントが無ければ空のオブジェクトで作成してから GuildStore を返します。
func NewGuildStore(docs *DocumentStore, path string) (*GuildStore, error) {
	if err := docs.Ensure(path, map[string]GuildSettings{}); err != nil {
		return nil, err
	}
	return &GuildStore{docs: docs, path: path}, nil
}

// Get はサーバーの設定を返します。未設定ならゼロ値です。
func (s *GuildStore) Get(guildID string) (GuildSettings, error) {
	all, _, err := Load[map[string]GuildSettings](s.docs, s.path)
	if err != nil {
		return GuildSettings{}, err
	}
	return all[guildID], nil
}

// Prefix はサーバーのコマンドプレフィックスを返します。未設定なら fallback です。
func (s *GuildStore) Prefix(guildID, fallback string) string {
	if guildID == "" {
		return fallback
	}
	settings, err := s.Get(guildID)
	if err != nil || settings.Prefix == "" {
		return fallback
	}
	return settings.Prefix
}

// SetPrefix はサーバーのプレフィックスを保存します。他のサーバーの設定は消えません。
func (s *GuildStore) SetPrefix(guildID, prefix string) (bool, error) {
	return Update(s.docs, s.path, func(all map[string]GuildSettings) map[string]GuildSettings {
		if all == nil {
			all = map[string]GuildSettings{}
		}
		settings := all[guildID]
		settings.Prefix = prefix
		all[guildID] = settings
		return all
	}, NoShrink())
}
