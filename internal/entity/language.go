package entity

// Language is one of the supported practice languages.
type Language struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

const English = "English"

var Languages = []Language{
	{Name: "English", Code: "en-US"},
	{Name: "Spanish", Code: "es-ES"},
	{Name: "French", Code: "fr-FR"},
	{Name: "German", Code: "de-DE"},
	{Name: "Japanese", Code: "ja-JP"},
	{Name: "Korean", Code: "ko-KR"},
	{Name: "Chinese", Code: "zh-CN"},
	{Name: "Russian", Code: "ru-RU"},
	{Name: "Italian", Code: "it-IT"},
	{Name: "Portuguese", Code: "pt-BR"},
	{Name: "Hindi", Code: "hi-IN"},
}

// LanguageCode returns the BCP 47 code for name, falling back to Spanish
// which is the default practice language.
func LanguageCode(name string) string {
	for _, l := range Languages {
		if l.Name == name {
			return l.Code
		}
	}
	return "es-ES"
}

// IsSupportedLanguage reports whether name is in Languages.
func IsSupportedLanguage(name string) bool {
	for _, l := range Languages {
		if l.Name == name {
			return true
		}
	}
	return false
}
