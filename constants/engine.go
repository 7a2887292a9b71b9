package constants

// EngineID identifies which extraction engine produced a field value.
type EngineID string

// Stable values (store these exact strings in DB).
const (
	EngineGemini    EngineID = "gemini"    // primary vision engine
	EngineTesseract EngineID = "tesseract" // local OCR fallback
)
