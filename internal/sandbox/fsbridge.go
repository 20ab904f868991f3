package sandbox

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// FsBridge exposes filesystem operations inside a running container at
// mountPath, implemented over `docker exec` rather than a separate
// volume-mount API so it works against any already-running sandbox.
type FsBridge struct {
	containerID string
	mountPath   string
}

// NewFsBridge returns a bridge that resolves relative paths against
// mountPath inside the container identified by containerID.
func NewFsBridge(containerID, mountPath string) *FsBridge {
	return &FsBridge{containerID: containerID, mountPath: mountPath}
}

func (b *FsBridge) resolve(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(b.mountPath, p)
}

// ReadFile returns the content of a file inside the container.
func (b *FsBridge) ReadFile(ctx context.Context, p string) (string, error) {
	out, err := dockerExecCapture(ctx, b.containerID, "cat", b.resolve(p))
	if err != nil {
		return "", err
	}
	return out, nil
}

// WriteFile overwrites (or creates) a file inside the container.
func (b *FsBridge) WriteFile(ctx context.Context, p, content string) error {
	resolved := b.resolve(p)
	dir := path.Dir(resolved)
	if _, err := dockerExecCapture(ctx, b.containerID, "mkdir", "-p", dir); err != nil {
		return err
	}
	script := fmt.Sprintf("cat > %s", shellQuote(resolved))
	return dockerExecStdin(ctx, b.containerID, script, content)
}

// ListFiles returns the names of entries under a directory inside the container.
func (b *FsBridge) ListFiles(ctx context.Context, p string) ([]string, error) {
	out, err := dockerExecCapture(ctx, b.containerID, "ls", "-1A", b.resolve(p))
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
