package report

// iconEmojis maps BOM icon descriptors to a glyph suitable for a status bar.
var iconEmojis = map[string]string{
	"sunny":         "☀️",
	"clear":         "🌙",
	"mostly_sunny":  "🌤️",
	"partly_cloudy": "⛅",
	"cloudy":        "☁️",
	"hazy":          "🌅",
	"light_rain":    "🌦️",
	"windy":         "🌬️",
	"fog":           "🌫️",
	"shower":        "🌦️",
	"light_shower":  "🌦️",
	"heavy_shower":  "🌧️",
	"rain":          "🌧️",
	"dusty":         "🐪",
	"frost":         "❄️",
	"snow":          "🌨️",
	"storm":         "⛈️",
	"cyclone":       "🌀",
}

// iconEmoji returns the glyph for a descriptor, with night variants for
// clear-sky conditions. Unknown descriptors get a question mark rather than
// an error; the API grows descriptors without notice.
func iconEmoji(descriptor string, isNight bool) string {
	if isNight && (descriptor == "sunny" || descriptor == "mostly_sunny") {
		return iconEmojis["clear"]
	}
	if e, ok := iconEmojis[descriptor]; ok {
		return e
	}
	return "?"
}
