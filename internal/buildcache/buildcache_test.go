package buildcache_test

import (
	"testing"
	"time"

	"github.com/franz-lang/franzc/internal/buildcache"
)

func openCache(t *testing.T) *buildcache.Cache {
	t.Helper()
	c, err := buildcache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := openCache(t)

	key := buildcache.Key("x = 5")
	buildID, err := c.Put(key, "define i64 @main() {\n}")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if buildID == "" {
		t.Fatal("empty build id")
	}

	entry, err := c.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry == nil {
		t.Fatal("expected a cache hit")
	}
	if entry.BuildID != buildID {
		t.Errorf("build id mismatch: %s vs %s", entry.BuildID, buildID)
	}
	if entry.IR != "define i64 @main() {\n}" {
		t.Errorf("wrong IR: %q", entry.IR)
	}
}

func TestMiss(t *testing.T) {
	c := openCache(t)
	entry, err := c.Get(buildcache.Key("never compiled"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected a miss, got %+v", entry)
	}
}

func TestReplace(t *testing.T) {
	c := openCache(t)
	key := buildcache.Key("x = 5")
	first, err := c.Put(key, "old")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Put(key, "new")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("replacement should mint a fresh build id")
	}

	entry, err := c.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if entry.IR != "new" {
		t.Errorf("expected replaced IR, got %q", entry.IR)
	}
}

func TestKeyStability(t *testing.T) {
	if buildcache.Key("a") != buildcache.Key("a") {
		t.Error("same source must produce the same key")
	}
	if buildcache.Key("a") == buildcache.Key("b") {
		t.Error("different sources must produce different keys")
	}
}

func TestPrune(t *testing.T) {
	c := openCache(t)
	if _, err := c.Put(buildcache.Key("fresh"), "ir"); err != nil {
		t.Fatal(err)
	}

	// nothing is older than an hour
	n, err := c.Prune(time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 pruned, got %d", n)
	}

	// everything is older than -1h (cutoff in the future)
	n, err = c.Prune(-time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
}
