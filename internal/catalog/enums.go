package catalog

// BuiltinEnums are the enum sets available to every catalog as enum_set
// names. A catalog file may redefine them.
var BuiltinEnums = map[string][]string{
	"us_states":             usStates,
	"us_territories":        usTerritories,
	"us_states_territories": append(append([]string(nil), usStates...), usTerritories...),
	"customer_classes":      customerClasses,
	"fuel_classes":          {"gas", "oil", "other", "renewable", "water", "wind", "wood"},
	"reliability_standards": {"ieee_standard", "other_standard"},
}

var usStates = []string{
	"AK", "AL", "AR", "AZ", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "IA", "ID", "IL", "IN", "KS", "KY", "LA", "MA", "MD",
	"ME", "MI", "MN", "MO", "MS", "MT", "NC", "ND", "NE", "NH",
	"NJ", "NM", "NV", "NY", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VA", "VT", "WA", "WI", "WV", "WY",
}

var usTerritories = []string{"AS", "DC", "GU", "MP", "PR", "VI"}

var customerClasses = []string{
	"commercial", "industrial", "direct_connection", "other",
	"residential", "total", "transportation",
}
