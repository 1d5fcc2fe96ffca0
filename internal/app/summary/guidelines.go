package summary

import "github.com/aqinsight/aqinsight/internal/core/stats"

// healthGuidelines is the fixed advisory table, one entry per category.
var healthGuidelines = map[string]string{
	stats.CategoryGood:      "Air quality is satisfactory. Enjoy outdoor activities.",
	stats.CategoryModerate:  "Sensitive individuals should consider reducing prolonged outdoor exertion.",
	stats.CategorySensitive: "Children, active adults, and people with respiratory disease should limit outdoor exertion.",
	stats.CategoryUnhealthy: "Everyone should limit prolonged outdoor exertion.",
	stats.CategoryHazardous: "Health warning of emergency conditions. The entire population is more likely to be affected.",
}

// defaultGuideline covers unrecognized categories, keeping the lookup total.
const defaultGuideline = "No specific guidelines available."

// Guidelines returns the health advisory for an air-quality category. It is
// total over all inputs and cannot fail.
func Guidelines(category string) string {
	if g, ok := healthGuidelines[category]; ok {
		return g
	}
	return defaultGuideline
}
