package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pudl/internal/ddl"
)

// fakeRepo records every call for assertions.
type fakeRepo struct {
	mu     sync.Mutex
	execs  []string
	copied map[string]int
	closed bool
	err    error
}

func (f *fakeRepo) CopyFrom(_ context.Context, table string, _ []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.copied == nil {
		f.copied = map[string]int{}
	}
	f.copied[table] += len(rows)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Exec(_ context.Context, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)
	return f.err
}

func (f *fakeRepo) Close() { f.closed = true }

type testDialect struct{}

func (testDialect) Name() string                     { return "test" }
func (testDialect) QuoteIdent(id string) string      { return `"` + id + `"` }
func (testDialect) MapType(ddl.Type) (string, error) { return "TEXT", nil }
func (testDialect) WrapCreate(_, body string) string { return body + ";" }
func (testDialect) DropTable(fqn string) string      { return "DROP TABLE " + fqn + ";" }
func (testDialect) MaxIdentLen() int                 { return 0 }

func TestRegisterAndNew(t *testing.T) {
	t.Parallel()

	Register("fake", func(context.Context, Config) (Repository, error) { return &fakeRepo{}, nil })
	repo, err := New(context.Background(), Config{Kind: "fake"})
	if err != nil || repo == nil {
		t.Fatalf("New = %v, %v", repo, err)
	}

	found := false
	for _, k := range ListKinds() {
		found = found || k == "fake"
	}
	if !found {
		t.Fatalf("fake not in ListKinds: %v", ListKinds())
	}
}

func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil || err.Error() != "unsupported storage.kind=does-not-exist" {
		t.Fatalf("err = %v", err)
	}
}

func TestRegister_OverrideAndErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	Register("override", func(context.Context, Config) (Repository, error) { calls++; return &fakeRepo{}, nil })
	Register("override", func(context.Context, Config) (Repository, error) { calls += 10; return &fakeRepo{}, nil })
	if _, err := New(context.Background(), Config{Kind: "override"}); err != nil {
		t.Fatal(err)
	}
	if calls != 10 {
		t.Fatalf("calls = %d, want 10", calls)
	}

	boom := errors.New("boom")
	Register("errkind", func(context.Context, Config) (Repository, error) { return nil, boom })
	if _, err := New(context.Background(), Config{Kind: "errkind"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", func(context.Context, Config) (Repository, error) { return &fakeRepo{}, nil })
	a := ListKinds()
	a[0] = "mutated"
	if reflect.DeepEqual(a, ListKinds()) {
		t.Fatalf("ListKinds returned the registry slice")
	}
}

func TestEnsureTables(t *testing.T) {
	t.Parallel()

	RegisterDDL("test", testDialect{})
	repo := &fakeRepo{}
	defs := []ddl.TableDef{
		{Name: "utilities", Columns: []ddl.ColumnDef{{Name: "id", Type: ddl.TypeInteger}}, PrimaryKey: []string{"id"}},
		{Name: "plants", Columns: []ddl.ColumnDef{{Name: "id", Type: ddl.TypeInteger}}},
	}
	if err := EnsureTables(context.Background(), "test", repo, defs, nil); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if len(repo.execs) != 2 || !strings.HasPrefix(repo.execs[0], `CREATE TABLE "utilities"`) {
		t.Fatalf("execs = %q", repo.execs)
	}

	if err := EnsureTables(context.Background(), "nope", repo, defs, nil); err == nil {
		t.Fatalf("expected error for kind without dialect")
	}

	bad := &fakeRepo{err: errors.New("locked")}
	if err := EnsureTables(context.Background(), "test", bad, defs, nil); err == nil || !strings.Contains(err.Error(), "create table utilities") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	in := make(chan []any, 8)
	for i := 0; i < 7; i++ {
		in <- []any{i, "x"}
	}
	close(in)

	var calls int32
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return int64(len(rows)), nil
	}
	total, err := LoadBatches(context.Background(), []string{"a", "b"}, in, 3, copyFn, nil)
	if err != nil {
		t.Fatalf("LoadBatches: %v", err)
	}
	if total != 7 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("total=%d calls=%d, want 7 and 3", total, calls)
	}
}

func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	in := make(chan []any, 5)
	for i := 0; i < 5; i++ {
		in <- []any{i}
	}
	close(in)

	want := errors.New("copy failed")
	batches := 0
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, want
		}
		return int64(len(rows)), nil
	}
	total, err := LoadBatches(context.Background(), []string{"c"}, in, 2, copyFn, nil)
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if total != 2 || batches != 2 {
		t.Fatalf("total=%d batches=%d, want 2 and 2", total, batches)
	}
}

func TestLoadBatches_InvalidArgs(t *testing.T) {
	t.Parallel()

	in := make(chan []any)
	close(in)
	noop := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }
	if _, err := LoadBatches(context.Background(), nil, in, 0, noop, nil); err == nil {
		t.Errorf("batchSize 0 accepted")
	}
	if _, err := LoadBatches(context.Background(), nil, in, 1, nil, nil); err == nil {
		t.Errorf("nil copyFn accepted")
	}
}

func TestLoadBatches_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	in := make(chan []any)
	noop := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }
	if _, err := LoadBatches(ctx, nil, in, 10, noop, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	rows := make([][]any, 25)
	for i := range rows {
		rows[i] = []any{i}
	}
	n, err := LoadTable(context.Background(), repo, "plants", []string{"id"}, rows, 10, nil)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if n != 25 || repo.copied["plants"] != 25 {
		t.Fatalf("n=%d copied=%v", n, repo.copied)
	}

	if _, err := LoadTable(context.Background(), repo, "plants", []string{"id"}, rows, 0, nil); err == nil {
		t.Fatalf("batchSize 0 accepted")
	}
}
