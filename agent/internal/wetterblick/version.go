package wetterblick

const (
	// Version is the uploader version reported at startup and by --version.
	Version = "0.1"

	// APIVersion is the wetterblick API revision this client speaks.
	APIVersion = "1.0.0 - 2026/02/01"

	// DefaultServerURL is the station data endpoint.
	DefaultServerURL = "https://wetterblick-api.com/sd"

	// ProtocolName is used as the log component for this destination.
	ProtocolName = "Wetterblick"
)
