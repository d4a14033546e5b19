package storage

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tanuki/logger"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-17 15:04:05 UTC = 17/10/2026 12:04:05 (UTC−3)
var testNow = time.Date(2026, 10, 17, 15, 4, 5, 0, time.UTC)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }
func (c *testClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// failingFs は指定したファイルの削除だけ失敗させます。
type failingFs struct {
	afero.Fs
	fail string
}

func (f failingFs) Remove(name string) error {
	if filepath.Base(name) == f.fail {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Remove(name)
}

func newTestErrorStore(t *testing.T, fs afero.Fs) (*ErrorStore, *testClock, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	clock := &testClock{t: testNow}
	store := NewErrorStore(fs, "errors", logger.New(&buf, slog.LevelDebug), WithClock(clock.Now))
	return store, clock, &buf
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "17/10/2026 12:04:05", FormatDate(testNow))
	assert.Equal(t, "ping_17:10:2026_12:04:05.json", ErrorFileName("ping", testNow))
	assert.Equal(t, "17:10:2026_12:04:05.json", ErrorFileName("", testNow))
}

func TestFingerprint(t *testing.T) {
	id := Fingerprint("ping", testNow, IDs("1", "2", "3"))
	assert.Len(t, id, 32)
	assert.Equal(t, id, Fingerprint("ping", testNow, IDs("1", "2", "3")))
	assert.NotEqual(t, id, Fingerprint("ping", testNow, IDs("1", "2", "4")))
	assert.NotEqual(t, id, Fingerprint("ping", testNow.Add(time.Second), IDs("1", "2", "3")))
	assert.Equal(t, "null-null-null", ContextIDs{}.String())
	assert.Equal(t, "1-null-3", IDs("1", "", "3").String())
}

func TestRecord(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _, _ := newTestErrorStore(t, fs)

	assert.Empty(t, store.List())
	exists, err := afero.DirExists(fs, "errors")
	require.NoError(t, err)
	assert.False(t, exists, "ディレクトリは最初の書き込みまで作られない")

	line, err := store.Record(errors.New("boom"), "ping.go", IDs("guild", "user", "msg"))
	require.NoError(t, err)
	assert.Contains(t, line, "ping_17:10:2026_12:04:05.json")

	files := store.List()
	require.Equal(t, []string{"ping_17:10:2026_12:04:05.json"}, files)

	rec, err := store.Read(files[0])
	require.NoError(t, err)
	assert.Equal(t, Fingerprint("ping", rec.CreatedAt(), IDs("guild", "user", "msg")), rec.ErrorID)
	assert.Equal(t, testNow.UnixMilli(), rec.MsDate)
	assert.Equal(t, "17/10/2026 12:04:05", rec.Date)
	require.NotNil(t, rec.Msg)
	assert.Equal(t, "boom", *rec.Msg)
	assert.NotNil(t, rec.Stack)
	require.NotNil(t, rec.IDs)
	assert.Equal(t, "guild", *rec.IDs.Server)
	assert.Equal(t, files[0], rec.ThisFile)
}

func TestRecordSchema(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _, _ := newTestErrorStore(t, fs)

	_, err := store.Record(errors.New("boom"), "", ContextIDs{})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "errors/17:10:2026_12:04:05.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"errorID\"")

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"errorID", "msdate", "date", "msg", "stack", "IDs", "thisfile"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, map[string]any{"server": nil, "user": nil, "msg": nil}, raw["IDs"])
}

func TestRecordNil(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _, _ := newTestErrorStore(t, fs)

	line, err := store.Record(nil, "ping", IDs("1", "2", "3"))
	require.NoError(t, err)
	assert.Empty(t, line)
	assert.Empty(t, store.List())
}

type tracedError struct{}

func (tracedError) Error() string { return "traced" }
func (tracedError) Stack() []byte { return []byte("goroutine 1 [running]") }

func TestRecordUsesErrorStack(t *testing.T) {
	store, _, _ := newTestErrorStore(t, afero.NewMemMapFs())
	_, err := store.Record(tracedError{}, "ctx", ContextIDs{})
	require.NoError(t, err)

	rec, err := store.Read(store.List()[0])
	require.NoError(t, err)
	assert.Equal(t, "goroutine 1 [running]", *rec.Stack)
}

func TestRecordSameSecondCollision(t *testing.T) {
	store, _, _ := newTestErrorStore(t, afero.NewMemMapFs())

	_, err := store.Record(errors.New("first"), "ping", ContextIDs{})
	require.NoError(t, err)
	_, err = store.Record(errors.New("second"), "ping", ContextIDs{})
	require.NoError(t, err)

	files := store.List()
	require.Len(t, files, 1, "同じ秒・同じコンテキストのファイル名は衝突する")
	rec, err := store.Read(files[0])
	require.NoError(t, err)
	assert.Equal(t, "second", *rec.Msg)
}

func TestFindByID(t *testing.T) {
	store, clock, _ := newTestErrorStore(t, afero.NewMemMapFs())

	_, found := store.FindByID("missing")
	assert.False(t, found, "ファイルが0件")

	_, err := store.Record(errors.New("a"), "ping", IDs("1", "1", "1"))
	require.NoError(t, err)
	_, found = store.FindByID("missing")
	assert.False(t, found, "一致しないファイルが1件")

	clock.Advance(time.Second)
	_, err = store.Record(errors.New("b"), "help", IDs("1", "1", "2"))
	require.NoError(t, err)
	_, found = store.FindByID("missing")
	assert.False(t, found, "一致しないファイルが2件")

	want := Fingerprint("help", clock.Now(), IDs("1", "1", "2"))
	file, found := store.FindByID(want)
	require.True(t, found)
	assert.Equal(t, "help_17:10:2026_12:04:06.json", file)
}

func TestFindByIDSkipsBrokenFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _, buf := newTestErrorStore(t, fs)
	require.NoError(t, fs.MkdirAll("errors", 0755))
	require.NoError(t, afero.WriteFile(fs, "errors/broken.json", []byte("{"), 0644))

	_, err := store.Record(errors.New("a"), "ping", ContextIDs{})
	require.NoError(t, err)

	file, found := store.FindByID(Fingerprint("ping", testNow, ContextIDs{}))
	require.True(t, found)
	assert.Equal(t, "ping_17:10:2026_12:04:05.json", file)
	assert.Contains(t, buf.String(), "broken.json")
}

func TestDeleteOne(t *testing.T) {
	store, clock, _ := newTestErrorStore(t, afero.NewMemMapFs())

	assert.ErrorIs(t, store.DeleteOne(""), ErrInvalidFile)
	assert.ErrorIs(t, store.DeleteOne("nonexistent.json"), ErrInvalidArgument)
	assert.ErrorIs(t, store.DeleteOne("../config.yaml"), ErrInvalidFile)

	_, err := store.Record(errors.New("a"), "ping", ContextIDs{})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = store.Record(errors.New("b"), "ping", ContextIDs{})
	require.NoError(t, err)

	require.NoError(t, store.DeleteOne("ping_17:10:2026_12:04:05.json"))
	assert.Equal(t, []string{"ping_17:10:2026_12:04:06.json"}, store.List())
}

func TestReadRejectsPathsOutsideDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _, _ := newTestErrorStore(t, fs)
	require.NoError(t, afero.WriteFile(fs, "secret.json", []byte(`{"errorID":"secret"}`), 0644))

	for _, name := range []string{"", ".", "..", "../secret.json", "sub/x.json", "/secret.json"} {
		t.Run(name, func(t *testing.T) {
			rec, err := store.Read(name)
			assert.ErrorIs(t, err, ErrInvalidFile)
			assert.Nil(t, rec)
		})
	}
}

func TestRecordKeepsHTMLCharacters(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, _, _ := newTestErrorStore(t, fs)

	_, err := store.Record(errors.New("a < b && c > d"), "ping", ContextIDs{})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, filepath.Join("errors", "ping_17:10:2026_12:04:05.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg": "a < b && c > d"`)
	assert.NotContains(t, string(data), `\u003c`)
}

func TestDeleteOneFailureIsReported(t *testing.T) {
	mem := afero.NewMemMapFs()
	store, _, buf := newTestErrorStore(t, failingFs{Fs: mem, fail: "ping_17:10:2026_12:04:05.json"})

	_, err := store.Record(errors.New("a"), "ping", ContextIDs{})
	require.NoError(t, err)

	require.NoError(t, store.DeleteOne("ping_17:10:2026_12:04:05.json"), "削除の失敗は呼び出し元に返らない")
	assert.Contains(t, buf.String(), "permission denied")
	// 元のファイルと、削除失敗を記録した新しいファイル
	assert.Len(t, store.List(), 2)
}

func TestClearAll(t *testing.T) {
	store, clock, _ := newTestErrorStore(t, afero.NewMemMapFs())
	assert.Empty(t, store.ClearAll())

	for i := 0; i < 5; i++ {
		_, err := store.Record(errors.New("x"), "ping", ContextIDs{})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	require.Len(t, store.List(), 5)

	results := store.ClearAll()
	assert.Len(t, results, 5)
	for _, r := range results {
		assert.NoError(t, r.Err, r.File)
	}
	assert.Empty(t, store.List())
}

func TestClearAllContinuesAfterFailure(t *testing.T) {
	const failing = "ping_17:10:2026_12:04:07.json"
	store, clock, _ := newTestErrorStore(t, failingFs{Fs: afero.NewMemMapFs(), fail: failing})

	var files []string
	for i := 0; i < 4; i++ {
		_, err := store.Record(errors.New("x"), "ping", ContextIDs{})
		require.NoError(t, err)
		files = append(files, ErrorFileName("ping", clock.Now()))
		clock.Advance(time.Second)
	}

	results := store.ClearAll()
	require.Len(t, results, 4)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, failing, r.File)
		}
	}
	assert.Equal(t, 1, failed)

	remaining := store.List()
	assert.Contains(t, remaining, failing)
	for _, f := range files {
		if f != failing {
			assert.NotContains(t, remaining, f)
		}
	}
	// 失敗したファイルと、その失敗の記録だけが残る
	assert.Len(t, remaining, 2)
}

func TestPrune(t *testing.T) {
	store, clock, _ := newTestErrorStore(t, afero.NewMemMapFs())

	_, err := store.Record(errors.New("old"), "ping", ContextIDs{})
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)
	_, err = store.Record(errors.New("new"), "ping", ContextIDs{})
	require.NoError(t, err)

	results := store.Prune(24 * time.Hour)
	require.Len(t, results, 1)
	assert.Equal(t, "ping_17:10:2026_12:04:05.json", results[0].File)
	assert.Equal(t, []string{"ping_19:10:2026_12:04:05.json"}, store.List())
}

func TestReportFallsBackToLogger(t *testing.T) {
	store, _, buf := newTestErrorStore(t, afero.NewReadOnlyFs(afero.NewMemMapFs()))

	store.Report(errors.New("boom"), "ping", ContextIDs{})
	assert.Contains(t, buf.String(), "エラーログの書き込みに失敗しました")
	assert.Empty(t, store.List())
}
