package geo

import "strings"

const UnknownFlag = "🌍"

var flags = map[string]string{
	"BH": "🇧🇭",
	"US": "🇺🇸",
	"GB": "🇬🇧",
	"UK": "🇬🇧",
	"CA": "🇨🇦",
	"AU": "🇦🇺",
	"IN": "🇮🇳",
	"JP": "🇯🇵",
	"CN": "🇨🇳",
	"FR": "🇫🇷",
	"DE": "🇩🇪",
	"IT": "🇮🇹",
	"ES": "🇪🇸",

	// Gulf and wider Middle East
	"SA": "🇸🇦",
	"AE": "🇦🇪",
	"KW": "🇰🇼",
	"QA": "🇶🇦",
	"OM": "🇴🇲",
	"EG": "🇪🇬",
	"JO": "🇯🇴",
	"LB": "🇱🇧",
	"SY": "🇸🇾",
	"IQ": "🇮🇶",
	"IR": "🇮🇷",

	"RU": "🇷🇺",
	"BR": "🇧🇷",
	"MX": "🇲🇽",
	"KR": "🇰🇷",
	"ID": "🇮🇩",
	"TH": "🇹🇭",
	"SG": "🇸🇬",
	"MY": "🇲🇾",
	"TR": "🇹🇷",
	"ZA": "🇿🇦",
}

// FlagFor returns the flag glyph for a country code, or UnknownFlag.
func FlagFor(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return UnknownFlag
	}
	if f, ok := flags[code]; ok {
		return f
	}
	return UnknownFlag
}
