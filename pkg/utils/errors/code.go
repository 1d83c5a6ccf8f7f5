package errors

// Service codes (AA)
const (
	// ServiceCommon is for errors shared by every component.
	ServiceCommon = 0

	// ServiceAPI is for the AxiomCore API server.
	ServiceAPI = 4

	// ServiceMonitor is for the operations tooling.
	ServiceMonitor = 5
)

// Category codes (BB)
const (
	CategorySuccess     = 0
	CategoryRequest     = 1
	CategoryResource    = 4
	CategoryRateLimit   = 6
	CategoryInternal    = 7
	CategoryUnavailable = 10
	CategoryTimeout     = 11
	CategoryConfig      = 12
)

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}

// IsClientError checks if the error code belongs to a 4xx category.
func IsClientError(code int) bool {
	_, category, _ := ParseCode(code)
	return category >= CategoryRequest && category <= CategoryRateLimit
}

// IsServerError checks if the error code belongs to a 5xx category.
func IsServerError(code int) bool {
	_, category, _ := ParseCode(code)
	return category >= CategoryInternal
}
