package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"tanuki/interfaces"

	"github.com/goccy/go-json"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
)

// DisplayZone はエラーログの日時表記に使う固定オフセット (UTC−3) です。
var DisplayZone = time.FixedZone("UTC-3", -3*60*60)

const (
	displayLayout  = "02/01/2006 15:04:05"
	fileTimeLayout = "02:01:2006_15:04:05"
	nullID         = "null"
)

// FormatDate は日時を dd/MM/yyyy HH:mm:ss (UTC−3) 形式に整形します。
func FormatDate(t time.Time) string {
	return t.In(DisplayZone).Format(displayLayout)
}

// ContextIDs はエラーに関係するサーバー・ユーザー・メッセージのIDです。
// 不明なIDは nil (JSON では null) になります。
type ContextIDs struct {
	Server *string `json:"server"`
	User   *string `json:"user"`
	Msg    *string `json:"msg"`
}

// IDs は空文字列を「不明」として扱い ContextIDs を組み立てます。
func IDs(server, user, msg string) ContextIDs {
	return ContextIDs{Server: optional(server), User: optional(user), Msg: optional(msg)}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orNull(s *string) string {
	if s == nil {
		return nullID
	}
	return *s
}

func (c ContextIDs) String() string {
	return orNull(c.Server) + "-" + orNull(c.User) + "-" + orNull(c.Msg)
}

// ErrorRecord は1件のエラーログファイルの内容です。書き込み後に更新されることはありません。
type ErrorRecord struct {
	ErrorID  string      `json:"errorID"`
	MsDate   int64       `json:"msdate"`
	Date     string      `json:"date"`
	Msg      *string     `json:"msg"`
	Stack    *string     `json:"stack"`
	IDs      *ContextIDs `json:"IDs"`
	ThisFile string      `json:"thisfile"`
}

// CreatedAt は記録された時刻を返します。
func (r ErrorRecord) CreatedAt() time.Time {
	return time.UnixMilli(r.MsDate)
}

// Fingerprint はコンテキスト・作成時刻・関連IDから errorID (md5, 32桁の16進数) を計算します。
func Fingerprint(context string, at time.Time, ids ContextIDs) string {
	sum := md5.Sum([]byte(context + "_" + FormatDate(at) + "_" + ids.String()))
	return hex.EncodeToString(sum[:])
}

// ErrorFileName はエラーログのファイル名を返します。コンテキストが空なら接頭辞を省略します。
// 秒単位の時刻なので、同じコンテキストで同じ秒に記録されたエラーは同じ名前になります。
func ErrorFileName(context string, at time.Time) string {
	stamp := at.In(DisplayZone).Format(fileTimeLayout)
	if context == "" {
		return stamp + ".json"
	}
	return context + "_" + stamp + ".json"
}

// DeleteResult はファイル1件ごとの削除結果です。
type DeleteResult struct {
	File string
	Err  error
}

// ErrorStore はエラーを1件1ファイルのJSONとして保存します。
type ErrorStore struct {
	fs  afero.Fs
	dir string
	log interfaces.Logger
	now func() time.Time
}

// ErrorStoreOption は ErrorStore の挙動を変更します。
type ErrorStoreOption func(*ErrorStore)

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) ErrorStoreOption {
	return func(s *ErrorStore) { s.now = now }
}

// NewErrorStore は dir 以下にエラーログを保存する ErrorStore を作成します。
// ディレクトリは最初の書き込み時に作成されます。
func NewErrorStore(fs afero.Fs, dir string, log interfaces.Logger, opts ...ErrorStoreOption) *ErrorStore {
	s := &ErrorStore{fs: fs, dir: dir, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir はエラーログのディレクトリを返します。
func (s *ErrorStore) Dir() string {
	return s.dir
}

// isBaseName はエラーディレクトリ直下のファイル名として使えるかを返します。
func isBaseName(file string) bool {
	return file != "" && file != "." && file != ".." && filepath.Base(file) == file
}

func (s *ErrorStore) path(file string) string {
	return filepath.Join(s.dir, file)
}

type stackTracer interface {
	Stack() []byte
}

// Record はエラーを新しいファイルに保存し、ログファイルを示す1行のメッセージを返します。
// cause が nil の場合は何もしません。
func (s *ErrorStore) Record(cause error, context string, ids ContextIDs) (string, error) {
	if cause == nil {
		return "", nil
	}
	context, _, _ = strings.Cut(context, ".")
	now := s.now()
	name := ErrorFileName(context, now)

	stack := debug.Stack()
	if st, ok := cause.(stackTracer); ok {
		stack = st.Stack()
	}
	rec := ErrorRecord{
		ErrorID:  Fingerprint(context, now, ids),
		MsDate:   now.UnixMilli(),
		Date:     FormatDate(now),
		Msg:      optional(cause.Error()),
		Stack:    optional(string(stack)),
		IDs:      &ids,
		ThisFile: name,
	}

	exists, err := afero.DirExists(s.fs, s.dir)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
			return "", fmt.Errorf("create error dir: %w", err)
		}
	}

	data, err := marshalIndent(rec)
	if err != nil {
		return "", fmt.Errorf("encode error record: %w", err)
	}
	path := s.path(name)
	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("write error record: %w", err)
	}
	return fmt.Sprintf("エラーを検出しました！\nログ: %s", path), nil
}

// Report は Record を呼び、結果をログに出力します。
// 記録自体に失敗した場合は再帰を避けるためロガーにだけ出力します。
func (s *ErrorStore) Report(cause error, context string, ids ContextIDs) {
	line, err := s.Record(cause, context, ids)
	if err != nil {
		s.log.Error("エラーログの書き込みに失敗しました", "error", err, "cause", cause, "context", context)
		return
	}
	if line != "" {
		s.log.Error("=> "+line, "context", context, "error", cause)
	}
}

// List はエラーログのファイル名を返します。ディレクトリがなければ空です。
func (s *ErrorStore) List() []string {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("エラーログ一覧の取得に失敗", "error", err, "dir", s.dir)
		}
		return []string{}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

// Read は1件のエラーログを読み込みます。
// ディレクトリを含む名前は ErrInvalidFile です。
func (s *ErrorStore) Read(file string) (*ErrorRecord, error) {
	if !isBaseName(file) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFile, file)
	}
	data, err := afero.ReadFile(s.fs, s.path(file))
	if err != nil {
		return nil, err
	}
	var rec ErrorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return &rec, nil
}

// FindByID は errorID が一致する最初のファイル名を返します。インデックスはなく全件を走査します。
func (s *ErrorStore) FindByID(errorID string) (string, bool) {
	for _, name := range s.List() {
		rec, err := s.Read(name)
		if err != nil {
			s.log.Warn("エラーログの読み込みに失敗", "error", err, "file", name)
			continue
		}
		if rec.ErrorID == errorID {
			return name, true
		}
	}
	return "", false
}

// DeleteOne はエラーログを1件削除します。
// ファイル名が空、または存在しない場合は ErrInvalidFile を返します。
// 削除自体の失敗は呼び出し元には返さず、Report で記録します。
func (s *ErrorStore) DeleteOne(file string) error {
	if !isBaseName(file) {
		return fmt.Errorf("%w: %q", ErrInvalidFile, file)
	}
	exists, err := afero.Exists(s.fs, s.path(file))
	if err != nil || !exists {
		return fmt.Errorf("%w: %q", ErrInvalidFile, file)
	}
	s.remove(file)
	return nil
}

// ClearAll はすべてのエラーログを個別に削除します。1件の失敗が他の削除を止めることはありません。
func (s *ErrorStore) ClearAll() []DeleteResult {
	return s.removeAll(s.List())
}

// Prune は maxAge より古いエラーログを削除します。読めないファイルは残します。
func (s *ErrorStore) Prune(maxAge time.Duration) []DeleteResult {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	var stale []string
	for _, name := range s.List() {
		rec, err := s.Read(name)
		if err != nil {
			s.log.Warn("エラーログの読み込みに失敗", "error", err, "file", name)
			continue
		}
		if rec.MsDate < cutoff {
			stale = append(stale, name)
		}
	}
	return s.removeAll(stale)
}

func (s *ErrorStore) removeAll(files []string) []DeleteResult {
	return iter.Map(files, func(file *string) DeleteResult {
		return DeleteResult{File: *file, Err: s.remove(*file)}
	})
}

func (s *ErrorStore) remove(file string) error {
	err := s.fs.Remove(s.path(file))
	if err != nil {
		s.Report(err, file, ContextIDs{})
	}
	return err
}
