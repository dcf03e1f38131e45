package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/card-comb/app/transport"
)

type fakeConn struct {
	endpoint string
	timeout  time.Duration
}

func (c *fakeConn) Call(ctx context.Context, method string) ([]byte, error) {
	return nil, transport.ErrUnknownMethod
}

func (c *fakeConn) Name() string {
	return c.endpoint
}

func fakeDialer(endpoint string, timeout time.Duration) transport.Conn {
	return &fakeConn{endpoint: endpoint, timeout: timeout}
}

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		tag      string
		expected Kind
	}{
		{"content", KindArticle},
		{"news", KindNews},
		{"video", KindVideo},
		{"artwork", KindArtwork},
		{"word", KindWord},
		{" Quote ", KindQuote},
		{"podcast", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		if got := ParseKind(tt.tag); got != tt.expected {
			t.Errorf("ParseKind(%q): expected %s, got %s", tt.tag, tt.expected, got)
		}
	}
}

func TestKindMethodsAreDistinct(t *testing.T) {
	seen := map[string]Kind{}
	for _, kind := range []Kind{KindArticle, KindNews, KindVideo, KindArtwork, KindWord, KindQuote} {
		method := kind.Method()
		if method == "" {
			t.Errorf("Expected method for %s", kind)
		}
		if other, ok := seen[method]; ok {
			t.Errorf("Method %s shared by %s and %s", method, kind, other)
		}
		seen[method] = kind
	}
	if KindUnknown.Method() != "" {
		t.Error("Expected no method for unknown kind")
	}
}

func TestRegistryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/providers/encyclopedia.yml", `
name: org.example.Encyclopedia
endpoint: http://127.0.0.1:9001
interfaces: [content, news, podcast]
knowledge_app_id: org.example.Encyclopedia.App
knowledge_search_path: /org/example/Encyclopedia
timeout: 5
`)
	writeFile(t, fs, "/providers/words.yaml", `
name: org.example.Words
endpoint: http://127.0.0.1:9002
interfaces: [word]
`)
	writeFile(t, fs, "/providers/disabled.yml", `
name: org.example.Disabled
endpoint: http://127.0.0.1:9003
interfaces: [video]
enabled: false
`)
	writeFile(t, fs, "/providers/broken.yml", `name: [unterminated`)
	writeFile(t, fs, "/providers/no-endpoint.yml", `name: org.example.NoEndpoint`)
	writeFile(t, fs, "/providers/readme.txt", `not a descriptor`)

	registry := NewRegistry(fs, "/providers", fakeDialer, 30*time.Second)
	require.NoError(t, registry.Run())

	assert.Equal(t, 3, registry.DescriptorCount())

	handles := registry.Snapshot()
	require.Len(t, handles, 4)

	kinds := make([]Kind, len(handles))
	for i, h := range handles {
		kinds[i] = h.Kind
	}
	assert.Equal(t, []Kind{KindArticle, KindNews, KindUnknown, KindWord}, kinds)

	article := handles[0]
	assert.Equal(t, "org.example.Encyclopedia", article.OwnerID)
	assert.Equal(t, "http://127.0.0.1:9001", article.BusName)
	assert.Equal(t, "/org/example/Encyclopedia", article.SearchPath)
	assert.Equal(t, "org.example.Encyclopedia.App", article.AppID)
	assert.Equal(t, 5*time.Second, article.Conn.(*fakeConn).timeout)

	assert.Equal(t, 30*time.Second, handles[3].Conn.(*fakeConn).timeout)
	assert.Equal(t, "podcast", handles[2].Interface)

	desc, err := registry.GetDescriptor("org.example.Disabled")
	require.NoError(t, err)
	assert.False(t, desc.Enabled)

	_, err = registry.GetDescriptor("org.example.Missing")
	assert.Error(t, err)
}

func TestRegistryMissingDirectory(t *testing.T) {
	registry := NewRegistry(afero.NewMemMapFs(), "/nowhere", fakeDialer, time.Second)

	require.NoError(t, registry.Run())
	assert.Empty(t, registry.Snapshot())
	assert.Empty(t, registry.Descriptors())
}

func TestRegistryDuplicateNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/p/a.yml", "name: dup\nendpoint: http://a\ninterfaces: [video]\n")
	writeFile(t, fs, "/p/b.yml", "name: dup\nendpoint: http://b\ninterfaces: [video]\n")

	registry := NewRegistry(fs, "/p", fakeDialer, time.Second)
	require.NoError(t, registry.Run())

	handles := registry.Snapshot()
	require.Len(t, handles, 1)
	assert.Equal(t, "http://a", handles[0].BusName)
}

func TestRegistryValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	registry := NewRegistry(fs, "/p", fakeDialer, time.Second)

	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "endpoint: http://a\n"},
		{"negative timeout", "name: a\nendpoint: http://a\ntimeout: -1\n"},
		{"empty interface", "name: a\nendpoint: http://a\ninterfaces: ['']\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFile(t, fs, "/p/x.yml", tt.content)
			_, err := registry.LoadDescriptor("/p/x.yml")
			assert.Error(t, err)
		})
	}
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/p/a.yml", "name: a\nendpoint: http://a\ninterfaces: [video]\n")

	registry := NewRegistry(fs, "/p", fakeDialer, time.Second)
	require.NoError(t, registry.Run())

	snapshot := registry.Snapshot()
	snapshot[0].OwnerID = "changed"

	assert.Equal(t, "a", registry.Snapshot()[0].OwnerID)
}

func TestRegistryWatchReloads(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry(afero.NewOsFs(), dir, fakeDialer, time.Second)
	require.NoError(t, registry.Run())
	require.Empty(t, registry.Snapshot())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- registry.Watch(ctx, 10*time.Millisecond)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	content := "name: late\nendpoint: http://late\ninterfaces: [artwork]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.yml"), []byte(content), 0o644))

	assert.Eventually(t, func() bool {
		return len(registry.Snapshot()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}
