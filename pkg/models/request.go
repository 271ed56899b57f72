package models

import "encoding/json"

// Envelope is the wrapper every server response uses.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LoginParams is the body of the code-exchange login call.
type LoginParams struct {
	Code string `json:"code"`
}

// LoginData is returned by a successful login.
type LoginData struct {
	Token    string   `json:"token"`
	UserInfo UserInfo `json:"userInfo"`
}

// AvatarUpload is the body of an avatar upload call.
type AvatarUpload struct {
	FilePath string `json:"filePath"`
}

// AvatarURL is returned by an avatar upload call.
type AvatarURL struct {
	URL string `json:"url"`
}
