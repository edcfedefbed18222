package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if got := c.String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "root:abc"); err != nil || hit {
		t.Fatalf("empty cache Get = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "root:abc", []byte("((A,B),C);"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "root:abc")
	if err != nil || !hit {
		t.Fatalf("Get after Set = hit %v, err %v", hit, err)
	}
	if string(data) != "((A,B),C);" {
		t.Errorf("Get = %q", data)
	}

	if err := c.Delete(ctx, "root:abc"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "root:abc"); hit {
		t.Error("entry should be gone after Delete")
	}
	if err := c.Delete(ctx, "root:abc"); err != nil {
		t.Errorf("Delete of missing key should succeed: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}

	// Zero TTL never expires
	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without TTL should hit")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry Get = hit %v, err %v; want clean miss", hit, err)
	}
}

func TestFileCacheClearAndStats(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	entries, size, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if entries != 3 || size == 0 {
		t.Errorf("Stats = (%d, %d), want 3 entries with non-zero size", entries, size)
	}

	removed, err := c.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 {
		t.Errorf("Clear removed %d, want 3", removed)
	}
	if entries, _, _ := c.Stats(); entries != 0 {
		t.Errorf("entries after Clear = %d", entries)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"", "null"},
		{"none", "null"},
		{t.TempDir(), "file"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			c, err := Open(tt.location)
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()
			var got string
			switch c.(type) {
			case *NullCache:
				got = "null"
			case *FileCache:
				got = "file"
			}
			if got != tt.want {
				t.Errorf("Open(%q) = %T, want %s", tt.location, c, tt.want)
			}
		})
	}

	if _, err := Open("redis://host:notaport/db"); err == nil {
		t.Error("Open with malformed redis URL should fail")
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("FASTROOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FASTROOT_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(url)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	if err := c.Set(ctx, "test:k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "test:k")
	if err != nil || !hit || string(data) != "v" {
		t.Fatalf("Get = (%q, %v, %v)", data, hit, err)
	}
	if _, err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "test:k"); hit {
		t.Error("entry should be gone after Clear")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}

	if HashStrings([]string{"ab", "c"}) == HashStrings([]string{"a", "bc"}) {
		t.Error("HashStrings should keep item boundaries")
	}
}

func TestHashRecord(t *testing.T) {
	tree := "((A:1,B:3):2,(C:2,(D:1,E:4):1):1);"
	tests := []struct {
		name   string
		record string
		same   bool
	}{
		{"identical", tree, true},
		{"surrounding whitespace", "\n  " + tree + "\t\n", true},
		{"wrapped over lines", "((A:1,B:3):2,\r\n(C:2,(D:1,E:4):1):1);", true},
		{"different length", "((A:1,B:3):2,(C:2,(D:1,E:5):1):1);", false},
	}
	want := HashRecord(tree)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashRecord(tt.record) == want; got != tt.same {
				t.Errorf("HashRecord(%q) matches = %v, want %v", tt.record, got, tt.same)
			}
		})
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := RootKeyOpts{Method: "MV", Solver: "auto", Epsilon: 1e-5, MaxIterations: 1000}

	rk1 := k.RootKey("tree1", base)
	if rk1 != k.RootKey("tree1", base) {
		t.Error("RootKey should be deterministic")
	}
	if len(rk1) != len("root:")+64 || rk1[:5] != "root:" {
		t.Errorf("RootKey unexpected: %s", rk1)
	}

	variants := []RootKeyOpts{
		{Method: "RTT", Solver: "auto", Epsilon: 1e-5, MaxIterations: 1000},
		{Method: "MV", Solver: "quadprog", Epsilon: 1e-5, MaxIterations: 1000},
		{Method: "MV", Solver: "auto", Epsilon: 1e-6, MaxIterations: 1000},
		{Method: "MV", Solver: "auto", Epsilon: 1e-5, MaxIterations: 10},
		{Method: "MV", Solver: "auto", Epsilon: 1e-5, MaxIterations: 1000, Alternatives: 3},
		{Method: "MV", Solver: "auto", Epsilon: 1e-5, MaxIterations: 1000, Covariates: "x"},
		{Method: "MV", Solver: "auto", Epsilon: 1e-5, MaxIterations: 1000, Outgroups: "y"},
	}
	for _, v := range variants {
		if k.RootKey("tree1", v) == rk1 {
			t.Errorf("RootKeyOpts %+v should change the key", v)
		}
	}
	if k.RootKey("tree2", base) == rk1 {
		t.Error("Different trees should produce different keys")
	}

	ak1 := k.ArtifactKey("tree1", ArtifactKeyOpts{Format: "svg", Layout: "dot"})
	ak2 := k.ArtifactKey("tree1", ArtifactKeyOpts{Format: "png", Layout: "dot"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "lab:")
	opts := RootKeyOpts{Method: "MP"}

	if got, want := scoped.RootKey("h", opts), "lab:"+inner.RootKey("h", opts); got != want {
		t.Errorf("ScopedKeyer RootKey = %s, want %s", got, want)
	}
	ak := scoped.ArtifactKey("h", ArtifactKeyOpts{Format: "svg"})
	if ak[:4] != "lab:" {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", ak)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.RootKey("h", RootKeyOpts{})
	if key != "prefix:"+NewDefaultKeyer().RootKey("h", RootKeyOpts{}) {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	if IsRetryable(ErrNetwork) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = 200 * time.Millisecond })

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNetwork
	})
	if err != ErrNetwork {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}

	// Gives up after three attempts
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("got err %v after %d calls, want retryable error after 3", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
