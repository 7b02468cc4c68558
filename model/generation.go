package model

import "time"

// Generation is one generate-and-store unit of work against the inference provider.
// Tuning columns are fixed at submission time and not client-controlled.
type Generation struct {
	ID             string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	Prompt         string `gorm:"column:prompt;type:text;not null" json:"prompt"`
	NegativePrompt string `gorm:"column:negative_prompt;type:text" json:"negative_prompt,omitempty"`
	Width          int    `gorm:"column:width;not null" json:"width"`
	Height         int    `gorm:"column:height;not null" json:"height"`

	Refine            string  `gorm:"column:refine;type:varchar(64)" json:"refine"`
	Scheduler         string  `gorm:"column:scheduler;type:varchar(32)" json:"scheduler"`
	LoraScale         float64 `gorm:"column:lora_scale" json:"lora_scale"`
	NumOutputs        int     `gorm:"column:num_outputs" json:"num_outputs"`
	GuidanceScale     float64 `gorm:"column:guidance_scale" json:"guidance_scale"`
	ApplyWatermark    bool    `gorm:"column:apply_watermark" json:"apply_watermark"`
	HighNoiseFrac     float64 `gorm:"column:high_noise_frac" json:"high_noise_frac"`
	PromptStrength    float64 `gorm:"column:prompt_strength" json:"prompt_strength"`
	NumInferenceSteps int     `gorm:"column:num_inference_steps" json:"num_inference_steps"`

	OutputURLs []string  `gorm:"column:output_urls;serializer:json;type:text" json:"output_urls"`
	Status     JobStatus `gorm:"column:status;type:varchar(32);index;not null" json:"status"`
	ErrorMsg   string    `gorm:"column:error_msg;type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Generation) TableName() string {
	return "ai_generations"
}
