package weather

// Condition is the display form of a WMO weather code.
type Condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var conditions = map[int]Condition{
	0:  {"Clear sky", "sun"},
	1:  {"Mainly clear", "sun"},
	2:  {"Partly cloudy", "cloud-sun"},
	3:  {"Overcast", "cloud"},
	45: {"Fog", "cloud-fog"},
	48: {"Depositing rime fog", "cloud-fog"},
	51: {"Light drizzle", "cloud-drizzle"},
	53: {"Moderate drizzle", "cloud-drizzle"},
	55: {"Dense drizzle", "cloud-drizzle"},
	56: {"Light freezing drizzle", "cloud-drizzle"},
	57: {"Dense freezing drizzle", "cloud-drizzle"},
	61: {"Slight rain", "cloud-rain"},
	63: {"Moderate rain", "cloud-rain"},
	65: {"Heavy rain", "cloud-rain"},
	66: {"Light freezing rain", "cloud-rain"},
	67: {"Heavy freezing rain", "cloud-rain"},
	71: {"Slight snow fall", "snowflake"},
	73: {"Moderate snow fall", "snowflake"},
	75: {"Heavy snow fall", "snowflake"},
	77: {"Snow grains", "snowflake"},
	80: {"Slight rain showers", "cloud-rain"},
	81: {"Moderate rain showers", "cloud-rain"},
	82: {"Violent rain showers", "cloud-rain"},
	85: {"Slight snow showers", "snowflake"},
	86: {"Heavy snow showers", "snowflake"},
	95: {"Thunderstorm", "cloud-lightning"},
	96: {"Thunderstorm with slight hail", "cloud-lightning"},
	99: {"Thunderstorm with heavy hail", "cloud-lightning"},
}

// Describe maps a WMO code to its description and icon.
func Describe(code int) Condition {
	if c, ok := conditions[code]; ok {
		return c
	}
	return Condition{Description: "Unknown", Icon: "cloud"}
}

// IsRain reports whether the code denotes liquid precipitation.
func IsRain(code int) bool {
	switch {
	case code >= 51 && code <= 67:
		return true
	case code >= 80 && code <= 82:
		return true
	}
	switch code {
	case 95, 96, 99:
		return true
	}
	return false
}
