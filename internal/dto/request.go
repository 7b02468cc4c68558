package dto

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type CreateDownloadRequest struct {
	URL string `json:"url" binding:"required"`
}

type GenerateRequest struct {
	Prompt         string `json:"prompt" binding:"required"`
	NegativePrompt string `json:"negative_prompt"`
	Width          int    `json:"width" binding:"omitempty,gt=0"`
	Height         int    `json:"height" binding:"omitempty,gt=0"`
}
