package rpc_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"memestickers/internal/modules/command/adapter/in/rpc"
	"memestickers/internal/modules/command/dto"
)

func TestPluginBinaryServesRouter(t *testing.T) {
	binPath := buildPlugin(t)
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "packs", "cats", "metadata.json"), `{"name":"cats","display_name":"Cats","version":"1.0.0"}`)
	writeFile(t, filepath.Join(dataDir, "packs", "cats", "stickers", "grumpy.png"), "\x89PNG\r\n\x1a\n0000")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	remote, err := rpc.Launch(ctx, rpc.LaunchOptions{
		Binary: binPath,
		Env:    []string{"MEMESTICKERS_DATA_DIR=" + dataDir},
	})
	if err != nil {
		t.Fatalf("launch plugin: %v", err)
	}
	defer remote.Close()

	meta := remote.Metadata()
	if meta.Name != "memestickers" || meta.Prefix != "/meme" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	resp, err := remote.Handle(ctx, dto.Request{UserID: "alice", Text: "/meme list"})
	if err != nil {
		t.Fatalf("handle list: %v", err)
	}
	if !resp.Handled || len(resp.Replies) != 1 || !strings.Contains(resp.Replies[0].Text, "Cats (cats)") {
		t.Fatalf("unexpected list response: %+v", resp)
	}

	resp, err = remote.Handle(ctx, dto.Request{UserID: "alice", Text: "/meme generate cats grumpy hello"})
	if err != nil {
		t.Fatalf("handle generate: %v", err)
	}
	if len(resp.Replies) != 1 || resp.Replies[0].Kind != "image" || resp.Replies[0].MIMEType != "image/png" {
		t.Fatalf("unexpected generate response: %+v", resp)
	}

	resp, err = remote.Handle(ctx, dto.Request{UserID: "alice", Text: "good morning"})
	if err != nil {
		t.Fatalf("handle plain text: %v", err)
	}
	if resp.Handled {
		t.Fatalf("plain text should not be handled")
	}

	commands, err := remote.Commands(ctx)
	if err != nil {
		t.Fatalf("list commands: %v", err)
	}
	found := false
	for _, c := range commands {
		if c.Name == "generate" {
			found = true
		}
	}
	if !found {
		t.Fatalf("generate missing from %+v", commands)
	}
	if err := remote.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

func buildPlugin(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "memestickers-plugin")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/memestickers-plugin")
	cmd.Dir = repositoryRoot(t)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build plugin: %v\n%s", err, string(out))
	}
	return binPath
}

func repositoryRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "../../../../../../"))
}

func writeFile(t *testing.T, path, payload string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
