package models

type BatchSummary struct {
	BatchID      string  `json:"batchId"`
	BatchName    string  `json:"batchName"`
	IconCount    int     `json:"iconCount"`
	CreatedAt    string  `json:"createdAt"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

type BatchIcon struct {
	Filename    string `json:"filename"`
	Prompt      string `json:"prompt"`
	StylePrompt string `json:"stylePrompt,omitempty"`
	ItemPrompt  string `json:"itemPrompt,omitempty"`
	URL         string `json:"url"`
}

type BatchManifest struct {
	BatchID   string      `json:"batchId"`
	BatchName string      `json:"batchName"`
	CreatedAt string      `json:"createdAt"`
	Icons     []BatchIcon `json:"icons"`
}

type GenerateRequest struct {
	Prompts     []string `json:"prompts"`
	Base64Image string   `json:"base64Image,omitempty"`
	BatchName   string   `json:"batchName,omitempty"`
	StylePrompt string   `json:"stylePrompt"`
	Temperature float64  `json:"temperature"`
}

type RegenerateRequest struct {
	ItemPrompt  string  `json:"itemPrompt"`
	StylePrompt string  `json:"stylePrompt"`
	Temperature float64 `json:"temperature"`
	Base64Image string  `json:"base64Image,omitempty"`
}

type BatchRenameRequest struct {
	NewName string `json:"newName"`
}

type ExportResult struct {
	TotalIcons   int `json:"totalIcons"`
	TotalBatches int `json:"totalBatches"`
}
