package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// openAppAction launches the application named by the matched command's
// "app" parameter (or the extracted "{param}" capture when no static app is
// configured).
func openAppAction(ctx context.Context, params map[string]string) (string, error) {
	app := params["app"]
	if app == "" {
		app = params["param"]
	}
	app = strings.TrimSpace(app)
	if app == "" {
		return "", fmt.Errorf("open-app: no application name")
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "-a", app)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", app)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", app)
	}
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("open-app: launch %q: %w", app, err)
	}
	return fmt.Sprintf("opened %s", app), nil
}

// systemControlAction performs a small closed set of OS-level controls named
// by the "control" parameter. Unrecognized controls fail with a readable
// error rather than guessing.
func systemControlAction(ctx context.Context, params map[string]string) (string, error) {
	control := strings.TrimSpace(strings.ToLower(params["control"]))
	if control == "" {
		control = strings.TrimSpace(strings.ToLower(params["param"]))
	}

	var cmd *exec.Cmd
	switch control {
	case "lock-screen":
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.CommandContext(ctx, "pmset", "displaysleepnow")
		case "windows":
			cmd = exec.CommandContext(ctx, "rundll32.exe", "user32.dll,LockWorkStation")
		default:
			cmd = exec.CommandContext(ctx, "loginctl", "lock-session")
		}
	case "mute", "unmute":
		switch runtime.GOOS {
		case "darwin":
			setting := "true"
			if control == "unmute" {
				setting = "false"
			}
			cmd = exec.CommandContext(ctx, "osascript", "-e", "set volume output muted "+setting)
		default:
			toggle := "1"
			if control == "unmute" {
				toggle = "0"
			}
			cmd = exec.CommandContext(ctx, "pactl", "set-sink-mute", "@DEFAULT_SINK@", toggle)
		}
	default:
		return "", fmt.Errorf("system-control: unknown control %q", control)
	}

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("system-control: %s: %w", control, err)
	}
	return control, nil
}
