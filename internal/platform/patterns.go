package platform

import "github.com/devalexanderdaza/antigravity-agent/internal/process"

// Pattern tables are ordered; the first matching entry wins.

var darwinPatterns = []process.Pattern{
	process.Exact("Antigravity"),
	process.Exact("Antigravity.app"),
	process.Exact("Electron"),
	process.Contains("Antigravity"),
	process.Contains("Antigravity Helper"),
	process.EndsWith("(Renderer)"),
	process.EndsWith("(GPU)"),
	process.CmdContains("Antigravity.app"),
	process.CmdContains("/Applications/Antigravity"),
	process.CmdContains("Applications/Antigravity"),
	process.CmdEndsWith(".app/Contents/MacOS/Electron"),
	process.CmdEndsWith(".app/Contents/MacOS/Antigravity"),
}

var windowsPatterns = []process.Pattern{
	process.Exact("Antigravity.exe"),
	process.Exact("Antigravity"),
	process.Contains("Antigravity"),
	process.CmdContains("Antigravity.exe"),
}

var linuxPatterns = []process.Pattern{
	process.Exact("antigravity"),
	process.Exact("Antigravity"),
	process.Contains("Antigravity"),
	process.CmdContains("antigravity"),
	process.CmdContains("Antigravity.AppImage"),
}

var fallbackPatterns = []process.Pattern{
	process.Contains("Antigravity"),
	process.Contains("antigravity"),
}
