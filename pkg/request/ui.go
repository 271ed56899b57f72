package request

// User-visible notices.
const (
	MsgLoading            = "loading..."
	MsgSessionExpired     = "session expired, please log in again"
	MsgNetworkUnavailable = "network unavailable"
	MsgRequestFailed      = "request failed"
)

// UI is the host's presentation layer. Calls may arrive from any goroutine.
type UI interface {
	ShowLoading(title string)
	HideLoading()
	Toast(msg string)
	RedirectToLogin(route string)
}

// NopUI ignores every notice.
type NopUI struct{}

func (NopUI) ShowLoading(string)     {}
func (NopUI) HideLoading()           {}
func (NopUI) Toast(string)           {}
func (NopUI) RedirectToLogin(string) {}
