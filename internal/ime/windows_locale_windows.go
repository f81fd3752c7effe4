//go:build windows

package ime

// localeNames maps the low 16 bits of a keyboard layout's language
// identifier (as returned by GetKeyboardLayout) to the locale string the
// windows-layout backend forwards. Extend as new layouts are observed;
// unknown identifiers are a logged, non-fatal error.
var localeNames = map[uint16]string{
	0x0409: "en-US",
	0x0809: "en-GB",
	0x0411: "ja-JP",
	0x0412: "ko-KR",
	0x0404: "zh-TW",
	0x0804: "zh-CN",
	0x0407: "de-DE",
	0x040C: "fr-FR",
	0x0419: "ru-RU",
	0x0410: "it-IT",
	0x0C0A: "es-ES",
}

func localeFromLangID(langID uint16) (string, bool) {
	name, ok := localeNames[langID]
	return name, ok
}
