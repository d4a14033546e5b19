package storage

import (
	"bufio"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// Archive は読み込めるすべてのエラーログを1行1件のJSONにして zstd で圧縮し w に書き込みます。
// 書き込んだ件数を返します。壊れたファイルは飛ばします。
func (s *ErrorStore) Archive(w io.Writer) (int, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, name := range s.List() {
		rec, err := s.Read(name)
		if err != nil {
			s.log.Warn("エラーログの読み込みに失敗", "error", err, "file", name)
			continue
		}
		line, err := json.Marshal(rec)
		if err != nil {
			enc.Close()
			return n, fmt.Errorf("encode %s: %w", name, err)
		}
		if _, err := enc.Write(append(line, '\n')); err != nil {
			enc.Close()
			return n, err
		}
		n++
	}
	return n, enc.Close()
}

// ReadArchive は Archive が書き込んだ内容を読み戻します。
func ReadArchive(r io.Reader) ([]ErrorRecord, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []ErrorRecord
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec ErrorRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return out, fmt.Errorf("decode archive line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}
