package entity

// ChatTurn is one role-tagged message sent to the generation provider
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type OllamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type OllamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type OllamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type OllamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatTurn    `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  OllamaOptions `json:"options"`
}

type OllamaChatResponse struct {
	Message ChatTurn `json:"message"`
	Done    bool     `json:"done"`
}

type OllamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
