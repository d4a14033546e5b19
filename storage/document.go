package storage

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
)

// changeContext は Change が記録するエラーのコンテキストです。
const changeContext = "utils_jsonChange"

// Reporter はエラーを記録してログに出力します。*ErrorStore が実装します。
type Reporter interface {
	Report(cause error, context string, ids ContextIDs)
}

// DocumentStore は .json ファイル1つを1つのドキュメントとして丸ごと読み書きします。
// ロックはありません。書き込みは常にファイル全体の上書きです。
type DocumentStore struct {
	fs     afero.Fs
	report Reporter
}

// NewDocumentStore は新しい DocumentStore を作成します。
func NewDocumentStore(fs afero.Fs, report Reporter) *DocumentStore {
	return &DocumentStore{fs: fs, report: report}
}

// Pull はドキュメントを読み込みます。
// path が空、.json で終わらない、またはファイルが存在しない場合は ok=false を返します。
func (s *DocumentStore) Pull(path string) (doc any, ok bool, err error) {
	if path == "" || !strings.HasSuffix(path, ".json") {
		return nil, false, nil
	}
	exists, err := afero.Exists(s.fs, path)
	if err != nil || !exists {
		return nil, false, err
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, true, nil
}

// Push はドキュメントを2スペースインデントのJSONでファイル全体に上書きします。
func (s *DocumentStore) Push(path string, doc any) error {
	data, err := marshalIndent(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return afero.WriteFile(s.fs, path, data, 0644)
}

// Ensure はドキュメントが存在しなければ親ディレクトリごと initial で作成します。
func (s *DocumentStore) Ensure(path string, initial any) error {
	exists, err := afero.Exists(s.fs, path)
	if err != nil || exists {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return s.Push(path, initial)
}

// Validator は書き込み前のドキュメントを検査します。エラーを返すと書き込みは行われません。
type Validator func(doc any) error

type changeOptions struct {
	minKeys   int
	noShrink  bool
	validator Validator
}

// ChangeOption は Change の安全チェックを設定します。
type ChangeOption func(*changeOptions)

// MinKeys は変換後のドキュメントが持つべき最小キー数を指定します。デフォルトは0（制限なし）です。
func MinKeys(n int) ChangeOption {
	return func(o *changeOptions) { o.minKeys = n }
}

// NoShrink は変換前のドキュメントのキー数を最小値にします。追加・編集だけを行う変換で使います。
func NoShrink() ChangeOption {
	return func(o *changeOptions) { o.noShrink = true }
}

// WithValidator は最小キー数のチェックに加えて独自の検査を行います。
func WithValidator(v Validator) ChangeOption {
	return func(o *changeOptions) { o.validator = v }
}

// Change はドキュメントを読み込み、transform の結果を書き戻します。
//
// ドキュメントが無い場合、キー数が最小値を下回る場合、検査に失敗した場合はエラーを記録して
// 書き込みません。transform がオブジェクトや配列以外を返した場合は何もせずに終わります。
// written は実際に書き込んだかどうかです。返す error は読み書きそのものの失敗だけです。
func (s *DocumentStore) Change(path string, transform func(doc any) any, opts ...ChangeOption) (written bool, err error) {
	var o changeOptions
	for _, opt := range opts {
		opt(&o)
	}

	doc, ok, err := s.Pull(path)
	if err != nil {
		return false, err
	}
	if !ok || !present(doc) {
		s.report.Report(fmt.Errorf("%w: %s", ErrNoDocument, path), changeContext, ContextIDs{})
		return false, nil
	}

	floor := o.minKeys
	if o.noShrink {
		floor, _ = KeyCount(doc)
	}

	result, err := normalize(transform(doc))
	if err != nil {
		return false, err
	}
	n, structured := KeyCount(result)
	if !structured {
		return false, nil
	}
	if n < floor {
		s.report.Report(fmt.Errorf("document size (%d) is smaller than expected (%d)", n, floor), changeContext, ContextIDs{})
		return false, nil
	}
	if o.validator != nil {
		if err := o.validator(result); err != nil {
			s.report.Report(fmt.Errorf("document rejected: %w", err), changeContext, ContextIDs{})
			return false, nil
		}
	}

	if err := s.Push(path, result); err != nil {
		return false, err
	}
	return true, nil
}

// Update は Change の型付き版です。ドキュメントを T にデコードして fn に渡します。
func Update[T any](s *DocumentStore, path string, fn func(T) T, opts ...ChangeOption) (bool, error) {
	var decodeErr error
	written, err := s.Change(path, func(doc any) any {
		var typed T
		if decodeErr = convert(doc, &typed); decodeErr != nil {
			return nil
		}
		return fn(typed)
	}, opts...)
	if decodeErr != nil {
		return false, decodeErr
	}
	return written, err
}

// Load はドキュメントを T として読み込みます。存在しなければ ok=false です。
func Load[T any](s *DocumentStore, path string) (v T, ok bool, err error) {
	doc, ok, err := s.Pull(path)
	if err != nil || !ok {
		return v, ok, err
	}
	err = convert(doc, &v)
	return v, err == nil, err
}

// present は null, false, 0, "" 以外なら true を返します。これらのドキュメントは無いものとして扱います。
func present(doc any) bool {
	switch v := doc.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

// KeyCount はオブジェクトのキー数、または配列の要素数を返します。
// それ以外の値では structured=false です。
func KeyCount(doc any) (n int, structured bool) {
	switch v := doc.(type) {
	case map[string]any:
		return len(v), true
	case []any:
		return len(v), true
	default:
		return 0, false
	}
}

// normalize は任意の値を JSON の汎用表現 (map[string]any, []any など) に揃えます。
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, map[string]any, []any:
		return v, nil
	}
	var out any
	if err := convert(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func convert(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// marshalIndent は <, >, & をエスケープせずに2スペースインデントのJSONを返します。末尾の改行は付けません。
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
