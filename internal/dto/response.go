package dto

import "time"

// SessionResponse is the auth response shape: the account plus its tokens.
type SessionResponse struct {
	User    SessionUser    `json:"user"`
	Session SessionDetails `json:"session"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type SessionDetails struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// GenerateResponse is returned by a completed generation request.
type GenerateResponse struct {
	Success   bool      `json:"success"`
	ID        string    `json:"id"`
	URLs      []string  `json:"urls"`
	Prompt    string    `json:"prompt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
