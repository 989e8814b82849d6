package api

// form parameter names of the speech endpoints
const (
	// PrmAudio is the multipart file parameter carrying audio bytes
	PrmAudio = "audio"
	// PrmLanguage is an optional language hint, defaults to "en"
	PrmLanguage = "language"
	// PrmDuration is an optional recording duration in seconds
	PrmDuration = "duration"
)

// DefaultLanguage is used when no language hint is provided
const DefaultLanguage = "en"

// transcription modes reported to the caller
const (
	ModeMock     = "mock"
	ModeDeepgram = "deepgram"
)
