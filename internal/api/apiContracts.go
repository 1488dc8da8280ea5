package api

// responses---------------------

type UploadResponse struct {
	Id string `json:"id" example:"3f1c2a9e-8a7b-4c55-9d1e-2b7f6a0c4e11"`
	// UUID repeats Id for clients that read the older field name
	UUID string `json:"uuid" example:"3f1c2a9e-8a7b-4c55-9d1e-2b7f6a0c4e11"`
}

type VisemeData struct {
	Start float64 `json:"start" example:"0.12"`
	End   float64 `json:"end" example:"0.31"`
	Value string  `json:"value" example:"B"`
}

type QnAResponse struct {
	Answer     string       `json:"answer" example:"Water boils at 100°C."`
	Audio      string       `json:"audio" example:"SUQzBAAAAAAA..."`
	VisemeData []VisemeData `json:"visemeData"`
	Mood       string       `json:"mood,omitempty" example:"happy"`
	Degraded   []string     `json:"degraded,omitempty" example:"speech"`
}

type UploadedDocsResponse struct {
	Docs []string `json:"docs"`
}

type AnalyzeImageResponse struct {
	Data       string       `json:"data" example:"A smiling person in front of a blue wall."`
	Audio      string       `json:"audio"`
	VisemeData []VisemeData `json:"visemeData"`
	Mood       string       `json:"mood" example:"happy"`
	Image      string       `json:"image"`
	Degraded   []string     `json:"degraded,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"No question provided."`
}

// requests---------------------

type QnARequest struct {
	Question string `json:"question" validate:"required" example:"At what temperature does water boil?"`
	// Image is base64, optionally with a data URL prefix
	Image   string `json:"image,omitempty"`
	Emotion string `json:"emotion,omitempty" example:"curious"`
}
