package main

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// terminalUI renders orchestrator notices on a terminal.
type terminalUI struct {
	mu  sync.Mutex
	out io.Writer
	log *zap.Logger
}

func newTerminalUI(out io.Writer, log *zap.Logger) *terminalUI {
	return &terminalUI{out: out, log: log}
}

func (u *terminalUI) ShowLoading(title string) {
	u.log.Debug("loading", zap.String("title", title))
}

func (u *terminalUI) HideLoading() {
	u.log.Debug("loading done")
}

func (u *terminalUI) Toast(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "! %s\n", msg)
}

func (u *terminalUI) RedirectToLogin(route string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.out, "! sign in again (%s): eva login --code <code>\n", route)
}
