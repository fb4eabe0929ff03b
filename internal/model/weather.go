package model

// Weather is the normalized forecast returned by the weather endpoint.
type Weather struct {
	Location    Location       `json:"location"`
	Current     CurrentWeather `json:"current"`
	Forecast    []ForecastDay  `json:"forecast"`
	Alerts      []WeatherAlert `json:"alerts"`
	LastUpdated string         `json:"lastUpdated"`
}

// Location identifies where a forecast applies.
type Location struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Localtime string  `json:"localtime"`
}

// Condition is a short weather description with an absolute icon URL.
type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code,omitempty"`
}

// CurrentWeather holds present conditions in metric units.
type CurrentWeather struct {
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	WindDir     string    `json:"windDir"`
	Pressure    float64   `json:"pressure"`
	UV          float64   `json:"uv"`
	Cloud       float64   `json:"cloud"`
	Condition   Condition `json:"condition"`
	IsDay       bool      `json:"isDay"`
}

// ForecastDay is one day of the multi-day forecast.
type ForecastDay struct {
	Date        string       `json:"date"`
	MaxTemp     float64      `json:"maxTemp"`
	MinTemp     float64      `json:"minTemp"`
	AvgTemp     float64      `json:"avgTemp"`
	MaxWind     float64      `json:"maxWind"`
	TotalPrecip float64      `json:"totalPrecip"`
	AvgHumidity float64      `json:"avgHumidity"`
	RainChance  float64      `json:"rainChance"`
	Condition   Condition    `json:"condition"`
	UV          float64      `json:"uv"`
	Astro       Astro        `json:"astro"`
	Hourly      []HourlySlot `json:"hourly"`
}

// Astro holds sun and moon data for a forecast day.
type Astro struct {
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	MoonPhase string `json:"moonPhase"`
}

// HourlySlot is one hour within a forecast day.
type HourlySlot struct {
	Time       string    `json:"time"`
	Temp       float64   `json:"temp"`
	Condition  Condition `json:"condition"`
	RainChance float64   `json:"rainChance"`
	Humidity   float64   `json:"humidity"`
	Wind       float64   `json:"wind"`
	FeelsLike  float64   `json:"feelsLike"`
}

// WeatherAlert is a government-issued weather warning for the location.
type WeatherAlert struct {
	Headline  string `json:"headline"`
	Severity  string `json:"severity"`
	Event     string `json:"event"`
	Effective string `json:"effective"`
	Expires   string `json:"expires"`
	Desc      string `json:"desc"`
}
