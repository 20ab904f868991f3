package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CheckDockerAvailable reports whether the docker CLI is on PATH and the
// daemon answers, without creating anything.
func CheckDockerAvailable(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "info")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker unavailable: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// DockerManager is the default Manager: one long-running container per
// key (scoped per Config.Scope by the caller choosing what key to pass),
// driven entirely through the docker CLI via os/exec.
type DockerManager struct {
	cfg Config

	mu         sync.Mutex
	containers map[string]*dockerSandbox
}

func NewDockerManager(cfg Config) *DockerManager {
	return &DockerManager{cfg: cfg, containers: make(map[string]*dockerSandbox)}
}

type dockerSandbox struct {
	id string
}

func (s *dockerSandbox) ID() string { return s.id }

func (s *dockerSandbox) Exec(ctx context.Context, argv []string, cwd string) (ExecResult, error) {
	args := []string{"exec"}
	if cwd != "" {
		args = append(args, "-w", cwd)
	}
	args = append(args, s.id)
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, "docker", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	result := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("docker exec: %w", err)
	}
	return result, nil
}

// Get returns the container for key, launching it on first use per
// c.Mode/WorkspaceAccess. Mode "off" always returns ErrSandboxDisabled so
// the caller falls back to host execution.
func (m *DockerManager) Get(ctx context.Context, key string, workspace string) (Sandbox, error) {
	if m.cfg.Mode == ModeOff || m.cfg.Mode == "" {
		return nil, ErrSandboxDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sb, ok := m.containers[key]; ok {
		return sb, nil
	}

	id, err := m.launch(ctx, workspace)
	if err != nil {
		return nil, err
	}
	sb := &dockerSandbox{id: id}
	m.containers[key] = sb
	return sb, nil
}

func (m *DockerManager) launch(ctx context.Context, workspace string) (string, error) {
	args := []string{"run", "-d", "--rm"}

	if m.cfg.MemoryMB > 0 {
		args = append(args, "--memory", strconv.Itoa(m.cfg.MemoryMB)+"m")
	}
	if m.cfg.CPUs > 0 {
		args = append(args, "--cpus", strconv.FormatFloat(m.cfg.CPUs, 'f', -1, 64))
	}
	if !m.cfg.NetworkEnabled {
		args = append(args, "--network", "none")
	}
	if m.cfg.ReadOnlyRoot {
		args = append(args, "--read-only")
	}
	if m.cfg.User != "" {
		args = append(args, "--user", m.cfg.User)
	}
	if m.cfg.TmpfsSizeMB > 0 {
		args = append(args, "--tmpfs", fmt.Sprintf("/tmp:size=%dm", m.cfg.TmpfsSizeMB))
	} else if m.cfg.ReadOnlyRoot {
		args = append(args, "--tmpfs", "/tmp")
	}
	for k, v := range m.cfg.Env {
		args = append(args, "-e", k+"="+v)
	}

	switch m.cfg.WorkspaceAccess {
	case AccessRO:
		args = append(args, "-v", workspace+":/workspace:ro")
	case AccessRW:
		args = append(args, "-v", workspace+":/workspace")
	}

	image := m.cfg.Image
	if image == "" {
		image = DefaultConfig().Image
	}
	args = append(args, image, "sleep", "infinity")

	launchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(launchCtx, "docker", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker run: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	id := strings.TrimSpace(stdout.String())
	if m.cfg.SetupCommand != "" {
		setupCmd := exec.CommandContext(ctx, "docker", "exec", id, "sh", "-c", m.cfg.SetupCommand)
		if err := setupCmd.Run(); err != nil {
			return id, fmt.Errorf("sandbox setup command: %w", err)
		}
	}
	return id, nil
}

// Close stops every container this manager launched.
func (m *DockerManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []string
	for key, sb := range m.containers {
		cmd := exec.CommandContext(ctx, "docker", "stop", "-t", "5", sb.id)
		if err := cmd.Run(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	m.containers = make(map[string]*dockerSandbox)
	if len(errs) > 0 {
		return fmt.Errorf("sandbox shutdown errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func dockerExecCapture(ctx context.Context, containerID string, argv ...string) (string, error) {
	args := append([]string{"exec", containerID}, argv...)
	cmd := exec.CommandContext(ctx, "docker", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker exec %s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func dockerExecStdin(ctx context.Context, containerID, shellScript, stdin string) error {
	cmd := exec.CommandContext(ctx, "docker", "exec", "-i", containerID, "sh", "-c", shellScript)
	cmd.Stdin = strings.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker exec stdin: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
