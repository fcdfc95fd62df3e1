package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SourceDocument renders one layout document line with the given number of
// pages. Every page carries two formula regions (categories 13 and 14) and
// one text region that is not recognized.
func SourceDocument(path string, pages int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `{"path":%q,"doc_layout_result":[`, path)
	for p := 0; p < pages; p++ {
		if p > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"page_id":%d,"layout_dets":[`+
			`{"category_id":13,"poly":[%d,0,10,0,10,10,%d,10],"score":0.9},`+
			`{"category_id":1,"poly":[0,20,10,20,10,30,0,30]},`+
			`{"category_id":14,"poly":[%d,40,10,40,10,50,%d,50]}]}`,
			p, p, p, p, p)
	}
	b.WriteString(`]}`)
	return b.String()
}

// WriteSources creates count JSONL sources under dir named item-NN.jsonl,
// each holding one two-page document, and returns their paths in order.
func WriteSources(t testing.TB, dir string, count int) []string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("item-%02d.jsonl", i)
		path := filepath.Join(dir, name)
		line := SourceDocument("s3://corpus/"+strings.TrimSuffix(name, ".jsonl")+".pdf", 2)
		if err := os.WriteFile(path, []byte(line+"\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}

// WriteManifest writes a list manifest naming sources, one per line.
func WriteManifest(t testing.TB, path string, sources []string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := strings.Join(sources, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write manifest %s: %v", path, err)
	}
}
