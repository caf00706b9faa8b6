package main

import (
	"embed"
	"os"
	"runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
)

func setDefaultEnv(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}

func configureLinuxDesktopEnv() {
	if runtime.GOOS != "linux" {
		return
	}
	if os.Getenv("WAYLAND_DISPLAY") == "" {
		return
	}

	// WebKitGTK can hit compositor/protocol errors on some Wayland stacks.
	setDefaultEnv("WEBKIT_DISABLE_COMPOSITING_MODE", "1")
	setDefaultEnv("WEBKIT_DISABLE_DMABUF_RENDERER", "1")
	if os.Getenv("DISPLAY") != "" {
		setDefaultEnv("GDK_BACKEND", "x11")
	}
}

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	configureLinuxDesktopEnv()

	app := NewApp()

	err := wails.Run(&options.App{
		Title:     "dictation",
		Width:     420,
		Height:    560,
		MinWidth:  320,
		MinHeight: 400,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Linux: &linux.Options{
			ProgramName: "dictation",
		},
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
