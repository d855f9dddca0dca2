// Package translator wraps the remote translation vendor: the Google Cloud
// Translation v3 client, language detection, the connectivity probe and the
// error taxonomy shared by the orchestrator.
package translator

import "context"

// Translator is the remote translation call. Implementations return a
// classified *Error on failure.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Detection is one language-detection result.
type Detection struct {
	LanguageCode string
	Confidence   float64
}

// Detector is the remote language-detection call.
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (Detection, error)
}

// ConnectivityProbe reports whether the network is reachable. The
// orchestrator never attempts a remote call while offline.
type ConnectivityProbe interface {
	IsOnline() bool
}
